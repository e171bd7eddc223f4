package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nesiel/class-bank/internal/dto"
	"github.com/nesiel/class-bank/internal/service"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/response"
)

type importService interface {
	Import(ctx context.Context, kind service.ImportKind, upload service.ImportUpload, dryRun bool) (*dto.ImportResult, error)
}

// ImportHandler accepts spreadsheet uploads.
type ImportHandler struct {
	imports importService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Import godoc
// @Summary Import a spreadsheet
// @Description Parses an xlsx or csv file and merges it into the student store. kind is behavior, contacts, semester or grades.
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param kind path string true "Import kind"
// @Param file formData file true "Spreadsheet"
// @Param dry_run query bool false "Parse without saving"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /imports/{kind} [post]
func (h *ImportHandler) Import(c *gin.Context) {
	kind := service.ImportKind(c.Param("kind"))
	if !kind.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "kind must be behavior, contacts, semester or grades"))
		return
	}
	dryRun := false
	if raw := c.Query("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dry_run must be a boolean"))
			return
		}
		dryRun = parsed
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnreadableWorkbook.Code, appErrors.ErrUnreadableWorkbook.Status, "failed to open upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	result, err := h.imports.Import(c.Request.Context(), kind, service.ImportUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	}, dryRun)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
