package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nesiel/class-bank/internal/dto"
	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/response"
)

type studentService interface {
	List(ctx context.Context, filter dto.StudentFilter) ([]dto.StudentSummary, *models.Pagination, error)
	Get(ctx context.Context, name string) (*models.Student, error)
	Leaderboard(ctx context.Context, query dto.LeaderboardQuery) ([]dto.LeaderboardEntry, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or class"
// @Param sort query string false "name, total or semester"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter dto.StudentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	filter.Search = strings.TrimSpace(filter.Search)

	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param name path string true "Student display name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{name} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Leaderboard godoc
// @Summary Podium ranking
// @Tags Students
// @Produce json
// @Param mode query string false "regular or semester"
// @Param limit query int false "Number of entries"
// @Success 200 {object} response.Envelope
// @Router /leaderboard [get]
func (h *StudentHandler) Leaderboard(c *gin.Context) {
	var query dto.LeaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	entries, err := h.students.Leaderboard(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
