//go:build !gocv

package vision

import (
	"VoiceRover/internal/model"
	"context"

	"go.uber.org/zap"
)

// CameraSource is unavailable without the gocv build tag.
type CameraSource struct{}

// OpenCamera returns ErrCameraUnavailable on builds without OpenCV.
func OpenCamera(device int, logger *zap.SugaredLogger) (*CameraSource, error) {
	return nil, ErrCameraUnavailable
}

// NextObservation always fails on builds without OpenCV.
func (c *CameraSource) NextObservation(ctx context.Context) (model.Observation, error) {
	return model.Observation{}, ErrCameraUnavailable
}

// Close is a no-op.
func (c *CameraSource) Close() error { return nil }
