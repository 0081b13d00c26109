package parser

import (
	"VoiceRover/internal/model"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Observation line format (decoder -> supervisor), one frame per line:
//
//	none                              no marker in frame
//	X,Y                               marker center
//	X1,Y1 X2,Y2 X3,Y3 X4,Y4           marker corners, center is their mean
//
// Any form may carry a "|payload" suffix with the decoded QR text.

// ParseObservation parses one observation line.
func ParseObservation(line string) (model.Observation, error) {
	body, payload, _ := strings.Cut(strings.TrimSpace(line), "|")
	body = strings.TrimSpace(body)
	if body == "" {
		return model.Observation{}, errors.New("empty observation")
	}
	if strings.EqualFold(body, "none") {
		return model.NoTarget(), nil
	}

	fields := strings.Fields(body)
	var center model.Point
	switch len(fields) {
	case 1:
		p, err := parsePoint(fields[0])
		if err != nil {
			return model.Observation{}, err
		}
		center = p
	case 4:
		corners := make([]model.Point, 0, 4)
		for _, f := range fields {
			p, err := parsePoint(f)
			if err != nil {
				return model.Observation{}, err
			}
			corners = append(corners, p)
		}
		c, err := QuadCenter(corners)
		if err != nil {
			return model.Observation{}, err
		}
		center = c
	default:
		return model.Observation{}, errors.Errorf("expected 1 or 4 points, got %d", len(fields))
	}

	obs := model.Target(center.X, center.Y)
	obs.Payload = strings.TrimSpace(payload)
	return obs, nil
}

func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, errors.Errorf("expected 2 coordinates, got %d", len(parts))
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return model.Point{}, errors.New("invalid x")
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return model.Point{}, errors.New("invalid y")
	}
	p := model.Point{X: x, Y: y}
	return p, checkFinite(p)
}

// checkFinite rejects NaN and infinite coordinates.
func checkFinite(p model.Point) error {
	for _, v := range [2]float64{p.X, p.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("non-finite coordinate %v", v)
		}
	}
	return nil
}

// QuadCenter returns the mean of the four corners of a detected marker.
func QuadCenter(corners []model.Point) (model.Point, error) {
	if len(corners) != 4 {
		return model.Point{}, errors.Errorf("expected 4 corners, got %d", len(corners))
	}
	var c model.Point
	for _, p := range corners {
		if err := checkFinite(p); err != nil {
			return model.Point{}, err
		}
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= 4
	c.Y /= 4
	return c, nil
}

// ObservationMessage is the websocket JSON form of an observation.
type ObservationMessage struct {
	Found   bool         `json:"found"`
	X       *float64     `json:"x,omitempty"`
	Y       *float64     `json:"y,omitempty"`
	Corners [][2]float64 `json:"corners,omitempty"`
	Payload string       `json:"payload,omitempty"`
}

// DecodeObservationJSON decodes a websocket observation message. A found
// message needs either both of x and y or four corners; corners take
// precedence over X/Y.
func DecodeObservationJSON(b []byte) (model.Observation, error) {
	var m ObservationMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return model.Observation{}, err
	}
	if !m.Found {
		return model.NoTarget(), nil
	}
	var center model.Point
	switch {
	case len(m.Corners) > 0:
		pts := make([]model.Point, 0, len(m.Corners))
		for _, c := range m.Corners {
			pts = append(pts, model.Point{X: c[0], Y: c[1]})
		}
		c, err := QuadCenter(pts)
		if err != nil {
			return model.Observation{}, err
		}
		center = c
	case m.X != nil && m.Y != nil:
		center = model.Point{X: *m.X, Y: *m.Y}
		if err := checkFinite(center); err != nil {
			return model.Observation{}, err
		}
	default:
		return model.Observation{}, errors.New("found observation without x/y or corners")
	}
	obs := model.Target(center.X, center.Y)
	obs.Payload = m.Payload
	return obs, nil
}

// EncodeObservationJSON encodes obs in the websocket message form.
func EncodeObservationJSON(obs model.Observation) ([]byte, error) {
	return json.Marshal(MessageFor(obs))
}

// MessageFor returns the websocket form of obs. A missing target carries no coordinates.
func MessageFor(obs model.Observation) ObservationMessage {
	m := ObservationMessage{Found: obs.Found, Payload: obs.Payload}
	if obs.Found {
		x, y := obs.X, obs.Y
		m.X, m.Y = &x, &y
	}
	return m
}
