package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	clone := Clone(ErrValidation, "name is required")
	assert.True(t, errors.Is(clone, ErrValidation))
	assert.False(t, errors.Is(clone, ErrNotFound))

	wrapped := fmt.Errorf("load: %w", Wrap(errors.New("boom"), ErrStateNotFound.Code, ErrStateNotFound.Status, "missing"))
	assert.True(t, errors.Is(wrapped, ErrStateNotFound))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := errors.New("disk")
	appErr := FromError(plain)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, plain)

	assert.Same(t, ErrForbidden, FromError(fmt.Errorf("ctx: %w", ErrForbidden)))
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "student not found")
	assert.Equal(t, "student not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, "resource not found", Clone(ErrNotFound, "").Message)
	assert.Equal(t, "missing: gone", Wrap(errors.New("gone"), "X", 400, "missing").Error())
}
