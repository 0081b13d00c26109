package vision

import (
	"VoiceRover/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservationFromCorners(t *testing.T) {
	obs, err := observationFromCorners([]float32{300, 100, 340, 100, 340, 140, 300, 140}, "bread")
	require.NoError(t, err)
	assert.Equal(t, model.Observation{Found: true, X: 320, Y: 120, Payload: "bread"}, obs)

	_, err = observationFromCorners([]float32{1, 2, 3}, "")
	assert.Error(t, err)
}
