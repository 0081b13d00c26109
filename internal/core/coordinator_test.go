package core

import (
	"VoiceRover/internal/device"
	"VoiceRover/internal/model"
	"VoiceRover/internal/parser"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCoordinator(t *testing.T, link *fakeLink, obs ObservationSource) *Coordinator {
	table, err := parser.NewPhraseTable(model.DefaultPhrases())
	require.NoError(t, err)
	return NewCoordinator(table, newTestProtocol(t, link), defaultTracking(), obs, zaptest.NewLogger(t).Sugar())
}

func TestHandleEmptyAndUnmatchedStayIdle(t *testing.T) {
	link := &fakeLink{}
	c := newTestCoordinator(t, link, &sliceObservations{})
	ctx := context.Background()

	_, err := c.Handle(ctx, "   ")
	assert.True(t, errors.Is(err, model.ErrNoPhrase))

	_, err = c.Handle(ctx, "what a nice day")
	assert.True(t, errors.Is(err, model.ErrNoMatch))

	assert.Equal(t, model.ModeIdle, c.Mode())
	writes, opens, _ := link.snapshot()
	assert.Empty(t, writes)
	assert.Zero(t, opens)
}

func TestHandleZoneSendsOnceAndLocks(t *testing.T) {
	link := &fakeLink{always: "ACK: 2\r\n"}
	c := newTestCoordinator(t, link, &sliceObservations{})
	ctx := context.Background()

	res, err := c.Handle(ctx, "Go to BREAD")
	require.NoError(t, err)
	assert.Equal(t, model.ModePointCommand, res.Mode)
	assert.Equal(t, model.MoveToZone(2), res.Command)
	assert.Equal(t, model.StatusSent, res.Outcome.Status)

	for _, text := range []string{"milk", "follow me", "nothing useful"} {
		_, err = c.Handle(ctx, text)
		assert.True(t, errors.Is(err, model.ErrModeLocked), text)
	}
	_, err = c.Follow(ctx)
	assert.True(t, errors.Is(err, model.ErrModeLocked))

	assert.Equal(t, model.ModePointCommand, c.Mode())
	writes, _, _ := link.snapshot()
	assert.Equal(t, []string{"2"}, writes)
}

func TestHandleFollowNotifiesThenTracks(t *testing.T) {
	link := &fakeLink{}
	obs := &sliceObservations{obs: []model.Observation{model.Target(10, 0), model.NoTarget(), model.Target(320, 0)}}
	c := newTestCoordinator(t, link, obs)

	var seen []model.Command
	c.OnDecision(func(d Decision) { seen = append(seen, d.Command) })

	res, err := c.Handle(context.Background(), "please follow me to the milk")
	require.NoError(t, err)
	assert.Equal(t, model.ModeTracking, res.Mode)
	assert.Equal(t, uint64(3), res.Ticks)
	assert.Equal(t, []model.Command{model.Left, model.Stop, model.Forward}, seen)

	writes, opens, closes := link.snapshot()
	assert.Equal(t, []string{"FOLLOW\n", "L", "S", "F"}, writes)
	assert.Equal(t, 2, opens, "one notify exchange and one stream")
	assert.Equal(t, 2, closes)

	_, err = c.Handle(context.Background(), "go to pen")
	assert.True(t, errors.Is(err, model.ErrModeLocked))
}

func TestFollowProceedsWhenNotifyFails(t *testing.T) {
	link := &fakeLink{openErrs: []error{model.ErrOpenFailed, nil}}
	c := newTestCoordinator(t, link, &sliceObservations{obs: []model.Observation{model.Target(600, 0)}})

	res, err := c.Follow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Ticks)
	writes, _, _ := link.snapshot()
	assert.Equal(t, []string{"R"}, writes)
}

func TestFollowFailsWhenStreamCannotOpen(t *testing.T) {
	link := &fakeLink{openErrs: []error{nil, errors.Wrap(model.ErrPortNotFound, "/dev/ttyACM0")}}
	c := newTestCoordinator(t, link, &sliceObservations{obs: []model.Observation{model.Target(600, 0)}})

	_, err := c.Follow(context.Background())
	assert.True(t, errors.Is(err, model.ErrPortNotFound))
	assert.Equal(t, model.ModeTracking, c.Mode())
}

func TestFollowReleasesOnExit(t *testing.T) {
	link := &fakeLink{}
	table, err := parser.NewPhraseTable(model.DefaultPhrases())
	require.NoError(t, err)
	tracking := defaultTracking()
	tracking.ReleaseOnExit = true
	c := NewCoordinator(table, newTestProtocol(t, link), tracking,
		&sliceObservations{obs: []model.Observation{model.NoTarget()}}, zaptest.NewLogger(t).Sugar())

	_, err = c.Follow(context.Background())
	require.NoError(t, err)
	writes, _, _ := link.snapshot()
	assert.Equal(t, []string{"FOLLOW\n", "S", "STOP FOLLOW\n"}, writes)
}

func TestRunSkipsUntilActionable(t *testing.T) {
	link := &fakeLink{}
	c := newTestCoordinator(t, link, &sliceObservations{})
	phrases := slicePhrases{"", "hello", "goto milk", "bread"}

	res, err := c.Run(context.Background(), &phrases)
	require.NoError(t, err)
	assert.Equal(t, model.MoveToZone(1), res.Command)
	assert.Equal(t, []string{"bread"}, []string(phrases), "later phrases stay unread")
}

func TestRunEndsAtEOFWhileIdle(t *testing.T) {
	c := newTestCoordinator(t, &fakeLink{}, &sliceObservations{})
	phrases := slicePhrases{"hmm"}

	res, err := c.Run(context.Background(), &phrases)
	require.NoError(t, err)
	assert.Equal(t, model.ModeIdle, res.Mode)
}

func TestEndToEndFollowWithEmulator(t *testing.T) {
	fw := device.NewArduino(zaptest.NewLogger(t).Sugar(), nil)
	table, err := parser.NewPhraseTable(model.DefaultPhrases())
	require.NoError(t, err)
	p := NewProtocol(device.LoopbackOpener(fw), testSerial(), fastProtocol(), zaptest.NewLogger(t).Sugar())
	obs := &sliceObservations{obs: []model.Observation{model.Target(50, 0), model.Target(330, 0)}}
	c := NewCoordinator(table, p, defaultTracking(), obs, zaptest.NewLogger(t).Sugar())

	res, err := c.Handle(context.Background(), "follow me")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Ticks)
	assert.Equal(t, device.ArduinoState{Follow: true, Drive: 'F'}, fw.State())
}
