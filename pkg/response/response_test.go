package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

func TestErrorRecordsInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Wrap(errors.New("disk full"), appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to save"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to save")
	assert.NotContains(t, w.Body.String(), "disk full")
	assert.Len(t, c.Errors, 1)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestAttachment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "standings\"\n.csv", "text/csv", []byte("a,b"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="standings.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b", w.Body.String())
}
