package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var fromGin, fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(headerKey))
	assert.Equal(t, "abc-123", fromGin)
	assert.Equal(t, "abc-123", fromCtx)

	for _, bad := range []string{"", "has space", strings.Repeat("x", maxLength+1), "שלום"} {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		if bad != "" {
			req.Header.Set(headerKey, bad)
		}
		w = httptest.NewRecorder()
		r.ServeHTTP(w, req)
		_, err := uuid.Parse(w.Header().Get(headerKey))
		assert.NoError(t, err, bad)
	}
}
