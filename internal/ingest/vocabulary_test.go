package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularyPrefersLongestKey(t *testing.T) {
	vocab := NewVocabulary(map[string]float64{"חוצפה": -1, "חוצפה/סרבנות": -2, "": 5, "  ": 3})
	assert.Equal(t, 2, vocab.Len())
	assert.Equal(t, []string{"חוצפה/סרבנות", "חוצפה"}, vocab.Keys())

	key, ok := vocab.Match("חוצפה/סרבנות בשיעור")
	assert.True(t, ok)
	assert.Equal(t, "חוצפה/סרבנות", key)

	_, ok = vocab.Match("")
	assert.False(t, ok)
}

func TestVocabularyIsImmutable(t *testing.T) {
	scores := map[string]float64{"איחור": -1}
	vocab := NewVocabulary(scores)
	scores["איחור"] = -5
	scores["חיסור"] = -1

	score, ok := vocab.Score("איחור")
	assert.True(t, ok)
	assert.Equal(t, -1.0, score)
	_, ok = vocab.Score("חיסור")
	assert.False(t, ok)

	copied := vocab.Scores()
	copied["איחור"] = 100
	score, _ = vocab.Score("איחור")
	assert.Equal(t, -1.0, score)
}

func TestVocabularyDefaultIsStructural(t *testing.T) {
	assert.True(t, DefaultVocabulary().IsDefault())

	scores := DefaultVocabulary().Scores()
	assert.True(t, NewVocabulary(scores).IsDefault())

	scores["איחור"] = -3
	assert.False(t, NewVocabulary(scores).IsDefault())
	assert.True(t, DefaultVocabulary().IsDefault())
}
