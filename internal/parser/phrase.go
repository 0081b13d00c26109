package parser

import (
	"VoiceRover/internal/model"
	"strings"

	"github.com/pkg/errors"
)

// Match is one phrase table entry. Follow entries carry FollowModeEnter.
type Match struct {
	Phrase  string
	Follow  bool
	Command model.Command
}

// PhraseTable maps recognized text to commands by ordered substring containment.
type PhraseTable struct {
	entries []Match
}

// NewPhraseTable builds a table from config entries, keeping their order.
func NewPhraseTable(cfg []model.PhraseConfig) (*PhraseTable, error) {
	t := &PhraseTable{entries: make([]Match, 0, len(cfg))}
	for i, p := range cfg {
		phrase := strings.ToLower(strings.TrimSpace(p.Phrase))
		if phrase == "" {
			return nil, errors.Errorf("phrase %d is empty", i)
		}
		m := Match{Phrase: phrase}
		switch p.Action {
		case model.ActionFollow:
			m.Follow = true
			m.Command = model.FollowModeEnter
		case model.ActionZone:
			m.Command = model.MoveToZone(p.Zone)
			if _, err := Encode(m.Command); err != nil {
				return nil, errors.Wrapf(err, "phrase %q", p.Phrase)
			}
		default:
			return nil, errors.Errorf("phrase %q: unknown action %q", p.Phrase, p.Action)
		}
		t.entries = append(t.entries, m)
	}
	return t, nil
}

// Lookup returns the first entry whose phrase occurs in text.
func (t *PhraseTable) Lookup(text string) (Match, bool) {
	lower := strings.ToLower(text)
	for _, m := range t.entries {
		if strings.Contains(lower, m.Phrase) {
			return m, true
		}
	}
	return Match{}, false
}

// Len returns the number of entries.
func (t *PhraseTable) Len() int { return len(t.entries) }
