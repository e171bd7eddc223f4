package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/nesiel/class-bank/internal/service"
	"github.com/nesiel/class-bank/pkg/response"
)

type exportService interface {
	CertificateComments(ctx context.Context) (*service.ExportFile, error)
	Standings(ctx context.Context, mode, format string) (*service.ExportFile, error)
}

// ExportHandler serves downloadable reports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Certificates godoc
// @Summary Download certificate comments workbook
// @Tags Exports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Router /exports/certificates [get]
func (h *ExportHandler) Certificates(c *gin.Context) {
	file, err := h.exports.CertificateComments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Standings godoc
// @Summary Download the leaderboard
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param mode query string false "regular or semester"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /exports/standings [get]
func (h *ExportHandler) Standings(c *gin.Context) {
	file, err := h.exports.Standings(c.Request.Context(), c.Query("mode"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}
