package parser

import (
	"VoiceRover/internal/model"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWireTable(t *testing.T) {
	cases := []struct {
		cmd  model.Command
		want string
	}{
		{model.MoveToZone(1), "1"},
		{model.MoveToZone(2), "2"},
		{model.MoveToZone(3), "3"},
		{model.Left, "L"},
		{model.Right, "R"},
		{model.Forward, "F"},
		{model.Backward, "B"},
		{model.Stop, "S"},
		{model.Cancel, "CANCEL\n"},
		{model.FollowModeEnter, "FOLLOW\n"},
		{model.FollowModeExit, "STOP FOLLOW\n"},
	}
	for _, tc := range cases {
		t.Run(tc.cmd.String(), func(t *testing.T) {
			b, err := Encode(tc.cmd)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(b))
		})
	}
}

func TestEncodeIsInjectiveAndDecodes(t *testing.T) {
	seen := map[string]model.Command{}
	for _, c := range model.AllCommands() {
		b, err := Encode(c)
		require.NoError(t, err)

		again, err := Encode(c)
		require.NoError(t, err)
		assert.Equal(t, b, again, "encoding must be deterministic")

		prev, dup := seen[string(b)]
		assert.False(t, dup, "%v and %v share payload %q", prev, c, b)
		seen[string(b)] = c

		got, err := Decode(b)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestEncodeRejectsBadCommands(t *testing.T) {
	for _, z := range []uint8{0, 4, 9} {
		_, err := Encode(model.MoveToZone(z))
		assert.True(t, errors.Is(err, model.ErrInvalidZone), "zone %d", z)
	}
	_, err := Encode(model.Command{Op: 99})
	assert.True(t, errors.Is(err, model.ErrUnknownCommand))
}

func TestDecodeRejectsUnknown(t *testing.T) {
	for _, p := range []string{"", "x", "4", "CANCEL", "HELLO\n", "LL"} {
		_, err := Decode([]byte(p))
		assert.Error(t, err, "payload %q", p)
	}
}

func TestParseCommandName(t *testing.T) {
	c, err := ParseCommandName(" Zone-2 ")
	require.NoError(t, err)
	assert.Equal(t, model.MoveToZone(2), c)

	c, err = ParseCommandName("stop-follow")
	require.NoError(t, err)
	assert.Equal(t, model.FollowModeExit, c)

	_, err = ParseCommandName("jump")
	assert.True(t, errors.Is(err, model.ErrUnknownCommand))
}

func TestIsBusy(t *testing.T) {
	marker := "Already executing"
	assert.True(t, IsBusy([]byte("Already executing — ignoring new command.\r\n"), marker))
	assert.True(t, IsBusy([]byte("\xffAlready executing\xfe"), marker))
	assert.False(t, IsBusy([]byte("ACK: 1\r\n"), marker))
	assert.False(t, IsBusy([]byte("already executing"), marker), "marker is case-sensitive")
	assert.False(t, IsBusy(nil, marker))
	assert.False(t, IsBusy([]byte("anything"), ""))
}

func TestReplyTextReplacesInvalidUTF8(t *testing.T) {
	assert.Equal(t, "ACK: F", ReplyText([]byte("ACK: F\r\n")))
	assert.Equal(t, "a�b", ReplyText([]byte("a\xffb")))
	assert.Equal(t, "", ReplyText(nil))
}

func TestPhraseTableDefaultOrder(t *testing.T) {
	table, err := NewPhraseTable(model.DefaultPhrases())
	require.NoError(t, err)
	assert.Equal(t, len(model.DefaultPhrases()), table.Len())

	cases := []struct {
		text   string
		follow bool
		zone   uint8
		ok     bool
	}{
		{"Follow me please", true, 0, true},
		{"please go to milk", false, 1, true},
		{"goto BREAD", false, 2, true},
		{"pen", false, 3, true},
		{"follow me to the milk", true, 0, true},
		{"milk and bread", false, 1, true},
		{"open the door", false, 3, true}, // "pen" is a substring of "open"
		{"hello robot", false, 0, false},
		{"", false, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			m, ok := table.Lookup(tc.text)
			require.Equal(t, tc.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tc.follow, m.Follow)
			if tc.follow {
				assert.Equal(t, model.FollowModeEnter, m.Command)
			} else {
				assert.Equal(t, model.MoveToZone(tc.zone), m.Command)
			}
		})
	}
}

func TestPhraseTableRejectsBadEntries(t *testing.T) {
	_, err := NewPhraseTable([]model.PhraseConfig{{Phrase: "x", Action: model.ActionZone, Zone: 7}})
	assert.Error(t, err)
	_, err = NewPhraseTable([]model.PhraseConfig{{Phrase: " ", Action: model.ActionFollow}})
	assert.Error(t, err)
	_, err = NewPhraseTable([]model.PhraseConfig{{Phrase: "dance", Action: "dance"}})
	assert.Error(t, err)
}

func TestParseObservation(t *testing.T) {
	obs, err := ParseObservation("none")
	require.NoError(t, err)
	assert.False(t, obs.Found)

	obs, err = ParseObservation(" 371,240 ")
	require.NoError(t, err)
	assert.Equal(t, model.Target(371, 240), obs)

	obs, err = ParseObservation("100,100 200,100 200,200 100,201|zone-A")
	require.NoError(t, err)
	assert.True(t, obs.Found)
	assert.InDelta(t, 150.0, obs.X, 1e-9)
	assert.InDelta(t, 150.25, obs.Y, 1e-9)
	assert.Equal(t, "zone-A", obs.Payload)

	for _, bad := range []string{
		"", "12", "a,b", "1,2 3,4", "1,2,3",
		"NaN,0", "0,NaN", "Inf,0", "-Inf,240", "+Inf,1e400",
		"0,0 10,0 NaN,10 0,10",
	} {
		_, err := ParseObservation(bad)
		assert.Error(t, err, "line %q", bad)
	}
}

func TestQuadCenterIsMean(t *testing.T) {
	c, err := QuadCenter([]model.Point{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 1}, {X: 0, Y: 1}})
	require.NoError(t, err)
	assert.Equal(t, model.Point{X: 1.5, Y: 0.5}, c)

	_, err = QuadCenter([]model.Point{{X: 1, Y: 1}})
	assert.Error(t, err)

	_, err = QuadCenter([]model.Point{{X: math.Inf(1)}, {}, {}, {}})
	assert.Error(t, err)
}

func TestObservationJSON(t *testing.T) {
	obs, err := DecodeObservationJSON([]byte(`{"found":true,"x":12,"y":34,"payload":"p"}`))
	require.NoError(t, err)
	assert.Equal(t, model.Observation{Found: true, X: 12, Y: 34, Payload: "p"}, obs)

	obs, err = DecodeObservationJSON([]byte(`{"found":true,"corners":[[0,0],[4,0],[4,4],[0,4]]}`))
	require.NoError(t, err)
	assert.Equal(t, model.Target(2, 2), obs)

	obs, err = DecodeObservationJSON([]byte(`{"found":false,"x":500}`))
	require.NoError(t, err)
	assert.Equal(t, model.NoTarget(), obs)

	obs, err = DecodeObservationJSON([]byte(`{"found":true,"x":0,"y":0}`))
	require.NoError(t, err)
	assert.Equal(t, model.Target(0, 0), obs)

	for _, bad := range []string{
		`{"found":true,"corners":[[1,1]]}`,
		`not json`,
		`{"found":true}`,
		`{"found":true,"x":320}`,
		`{"found":true,"y":240,"payload":"dock"}`,
		`{"found":true,"x":1e400,"y":0}`,
	} {
		_, err := DecodeObservationJSON([]byte(bad))
		assert.Error(t, err, "message %s", bad)
	}

	b, err := EncodeObservationJSON(model.Target(1.5, 2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":true,"x":1.5,"y":2}`, string(b))

	b, err = EncodeObservationJSON(model.Target(0, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":true,"x":0,"y":0}`, string(b))

	b, err = EncodeObservationJSON(model.NoTarget())
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":false}`, string(b))
}
