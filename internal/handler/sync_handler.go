package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nesiel/class-bank/internal/dto"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/response"
)

type syncService interface {
	Push(ctx context.Context) (*dto.SyncResult, error)
	Pull(ctx context.Context) (*dto.SyncResult, error)
	EnqueuePush(reason string) (string, bool)
	Status() (time.Time, error)
}

// SyncHandler exposes remote synchronisation endpoints.
type SyncHandler struct {
	sync syncService
	now  func() time.Time
}

// NewSyncHandler constructs SyncHandler.
func NewSyncHandler(svc syncService) *SyncHandler {
	return &SyncHandler{sync: svc, now: time.Now}
}

// Push godoc
// @Summary Push state to the remote spreadsheet
// @Description With async=true the push is queued and 202 is returned.
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param async query bool false "Queue instead of pushing inline"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sync/push [post]
func (h *SyncHandler) Push(c *gin.Context) {
	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		id, ok := h.sync.EnqueuePush("manual")
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrSyncUnavailable, "sync push could not be queued"))
			return
		}
		response.JSON(c, http.StatusAccepted, &dto.SyncResult{Direction: "push", Queued: true, JobID: id, At: h.now()}, nil)
		return
	}

	res, err := h.sync.Push(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Pull godoc
// @Summary Replace local state with the remote copy
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sync/pull [post]
func (h *SyncHandler) Pull(c *gin.Context) {
	res, err := h.sync.Pull(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Status godoc
// @Summary Last sync outcome
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	last, lastErr := h.sync.Status()
	data := gin.H{"last_sync": nil}
	if !last.IsZero() {
		data["last_sync"] = last
	}
	if lastErr != nil {
		data["last_error"] = lastErr.Error()
	}
	response.JSON(c, http.StatusOK, data, nil)
}
