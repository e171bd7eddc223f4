package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nesiel/class-bank/internal/dto"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

type vocabularyServiceMock struct {
	updated map[string]float64
	reset   bool
	err     error
}

func (m *vocabularyServiceMock) Get(ctx context.Context) (*dto.VocabularyResponse, error) {
	return &dto.VocabularyResponse{Actions: []dto.VocabularyAction{{Name: "איחור", Score: -1}}, IsDefault: true}, nil
}

func (m *vocabularyServiceMock) Update(ctx context.Context, req dto.UpdateVocabularyRequest) (*dto.VocabularyResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.updated = req.Scores
	return &dto.VocabularyResponse{}, nil
}

func (m *vocabularyServiceMock) Reset(ctx context.Context) (*dto.VocabularyResponse, error) {
	m.reset = true
	return &dto.VocabularyResponse{IsDefault: true}, nil
}

func TestVocabularyHandlerGet(t *testing.T) {
	h := NewVocabularyHandler(&vocabularyServiceMock{})
	c, w := newTestContext(http.MethodGet, "/vocabulary", nil)

	h.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "איחור")
}

func TestVocabularyHandlerUpdate(t *testing.T) {
	svc := &vocabularyServiceMock{}
	h := NewVocabularyHandler(svc)
	c, w := newTestContext(http.MethodPut, "/vocabulary", strings.NewReader(`{"scores":{"ניקיון":2}}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]float64{"ניקיון": 2}, svc.updated)
}

func TestVocabularyHandlerUpdateErrors(t *testing.T) {
	h := NewVocabularyHandler(&vocabularyServiceMock{})
	c, w := newTestContext(http.MethodPut, "/vocabulary", strings.NewReader(`{"scores":"nope"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h = NewVocabularyHandler(&vocabularyServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "bad name")})
	c, w = newTestContext(http.MethodPut, "/vocabulary", strings.NewReader(`{"scores":{"1":1}}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad name")
}

func TestVocabularyHandlerReset(t *testing.T) {
	svc := &vocabularyServiceMock{}
	h := NewVocabularyHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/vocabulary", nil)

	h.Reset(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.reset)
}
