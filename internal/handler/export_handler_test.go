package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nesiel/class-bank/internal/service"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

type exportServiceMock struct {
	mode   string
	format string
}

func (m *exportServiceMock) CertificateComments(ctx context.Context) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "certificate-comments-20260101.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: []byte("PK")}, nil
}

func (m *exportServiceMock) Standings(ctx context.Context, mode, format string) (*service.ExportFile, error) {
	m.mode, m.format = mode, format
	if format == "doc" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported format")
	}
	return &service.ExportFile{Filename: "standings-regular-20260101.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("a,b\n")}, nil
}

func TestExportHandlerCertificates(t *testing.T) {
	h := NewExportHandler(&exportServiceMock{})
	c, w := newTestContext(http.MethodGet, "/exports/certificates", nil)

	h.Certificates(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="certificate-comments-20260101.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK", w.Body.String())
}

func TestExportHandlerStandings(t *testing.T) {
	svc := &exportServiceMock{}
	h := NewExportHandler(svc)
	c, w := newTestContext(http.MethodGet, "/exports/standings?mode=regular&format=csv", nil)

	h.Standings(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "regular", svc.mode)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))

	c, w = newTestContext(http.MethodGet, "/exports/standings?format=doc", nil)
	h.Standings(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
