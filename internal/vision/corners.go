// Package vision turns camera frames into observations by locating a QR code.
// The OpenCV-backed source is built with the gocv tag; without it OpenCamera
// reports ErrCameraUnavailable.
package vision

import (
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"

	"github.com/pkg/errors"
)

// ErrCameraUnavailable means the binary was built without OpenCV support.
var ErrCameraUnavailable = errors.New("camera support not built in (rebuild with -tags gocv)")

// observationFromCorners converts the flat x,y corner list of a detected code
// into a target at the corner mean.
func observationFromCorners(flat []float32, payload string) (model.Observation, error) {
	if len(flat) < 8 {
		return model.Observation{}, errors.Errorf("expected 8 corner coordinates, got %d", len(flat))
	}
	corners := make([]model.Point, 4)
	for i := range corners {
		corners[i] = model.Point{X: float64(flat[2*i]), Y: float64(flat[2*i+1])}
	}
	c, err := parser.QuadCenter(corners)
	if err != nil {
		return model.Observation{}, err
	}
	obs := model.Target(c.X, c.Y)
	obs.Payload = payload
	return obs, nil
}
