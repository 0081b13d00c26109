//go:build gocv

package vision

import (
	"VoiceRover/internal/model"
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// CameraSource captures frames and decodes the QR code in each one.
type CameraSource struct {
	mu       sync.Mutex
	capture  *gocv.VideoCapture
	detector gocv.QRCodeDetector
	frame    gocv.Mat
	device   int
	logger   *zap.SugaredLogger
}

// OpenCamera opens capture device and prepares a QR detector.
func OpenCamera(device int, logger *zap.SugaredLogger) (*CameraSource, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, errors.Wrapf(err, "open camera %d", device)
	}
	logger = logger.Named("camera")
	logger.Infow("camera opened", "device", device)
	return &CameraSource{
		capture:  capture,
		detector: gocv.NewQRCodeDetector(),
		frame:    gocv.NewMat(),
		device:   device,
		logger:   logger,
	}, nil
}

// NextObservation grabs one frame. A frame without a code yields NoTarget.
func (c *CameraSource) NextObservation(ctx context.Context) (model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return model.Observation{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.capture.Read(&c.frame); !ok {
		return model.Observation{}, errors.Errorf("camera %d: read failed", c.device)
	}
	if c.frame.Empty() {
		return model.NoTarget(), nil
	}

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	payload := c.detector.DetectAndDecode(c.frame, &points, &straight)
	if points.Empty() {
		return model.NoTarget(), nil
	}
	flat, err := points.DataPtrFloat32()
	if err != nil {
		return model.Observation{}, errors.Wrap(err, "qr corners")
	}
	obs, err := observationFromCorners(flat, payload)
	if err != nil {
		c.logger.Debugw("unusable qr corners", "error", err)
		return model.NoTarget(), nil
	}
	return obs, nil
}

// Close releases the capture device and detector.
func (c *CameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	c.detector.Close()
	return c.capture.Close()
}
