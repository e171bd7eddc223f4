package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nesiel/class-bank/internal/dto"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/response"
)

type vocabularyService interface {
	Get(ctx context.Context) (*dto.VocabularyResponse, error)
	Update(ctx context.Context, req dto.UpdateVocabularyRequest) (*dto.VocabularyResponse, error)
	Reset(ctx context.Context) (*dto.VocabularyResponse, error)
}

// VocabularyHandler exposes the behaviour vocabulary.
type VocabularyHandler struct {
	service vocabularyService
}

// NewVocabularyHandler constructs VocabularyHandler.
func NewVocabularyHandler(svc vocabularyService) *VocabularyHandler {
	return &VocabularyHandler{service: svc}
}

// Get godoc
// @Summary Behaviour vocabulary
// @Tags Vocabulary
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /vocabulary [get]
func (h *VocabularyHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Update godoc
// @Summary Replace behaviour vocabulary
// @Tags Vocabulary
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateVocabularyRequest true "Action scores"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /vocabulary [put]
func (h *VocabularyHandler) Update(c *gin.Context) {
	var req dto.UpdateVocabularyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid vocabulary payload"))
		return
	}
	res, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Reset godoc
// @Summary Restore the built-in vocabulary
// @Tags Vocabulary
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /vocabulary [delete]
func (h *VocabularyHandler) Reset(c *gin.Context) {
	res, err := h.service.Reset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
