package ingest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nesiel/class-bank/internal/models"
)

// Vocabulary maps canonical action names to signed per-occurrence points.
// It is immutable once built; match order is fixed at construction.
type Vocabulary struct {
	scores map[string]float64
	keys   []string
}

// NewVocabulary copies scores and orders the keys longest first so a more
// specific action is never shadowed by a shorter one it contains. Blank keys
// are ignored.
func NewVocabulary(scores map[string]float64) Vocabulary {
	copied := make(map[string]float64, len(scores))
	keys := make([]string, 0, len(scores))
	for key, score := range scores {
		if strings.TrimSpace(key) == "" {
			continue
		}
		copied[key] = score
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})
	return Vocabulary{scores: copied, keys: keys}
}

// DefaultVocabulary builds the built-in behaviour vocabulary.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(models.DefaultActionScores())
}

// Match returns the longest vocabulary key contained in text.
func (v Vocabulary) Match(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, key := range v.keys {
		if strings.Contains(text, key) {
			return key, true
		}
	}
	return "", false
}

// Score returns the per-occurrence points of an action.
func (v Vocabulary) Score(action string) (float64, bool) {
	score, ok := v.scores[action]
	return score, ok
}

// Len is the number of actions.
func (v Vocabulary) Len() int {
	return len(v.keys)
}

// Keys returns the actions in match order.
func (v Vocabulary) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Scores returns a copy of the action table.
func (v Vocabulary) Scores() map[string]float64 {
	out := make(map[string]float64, len(v.scores))
	for key, score := range v.scores {
		out[key] = score
	}
	return out
}

// Equal compares two vocabularies by content.
func (v Vocabulary) Equal(other Vocabulary) bool {
	if len(v.scores) != len(other.scores) {
		return false
	}
	for key, score := range v.scores {
		if otherScore, ok := other.scores[key]; !ok || otherScore != score {
			return false
		}
	}
	return true
}

// IsDefault reports whether v holds exactly the built-in actions and scores.
func (v Vocabulary) IsDefault() bool {
	return v.Equal(DefaultVocabulary())
}
