package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nesiel/class-bank/internal/dto"
	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/jobs"
)

const (
	syncDirectionPush = "push"
	syncDirectionPull = "pull"

	syncJobType = "sync.push"

	// omittedResourceURL replaces large inline resources on push. Pull
	// restores the local value for any resource still carrying it.
	omittedResourceURL = "OMITTED_AUTO_SAVE"
	inlineURLLimit     = 1000

	maxSyncResponseBytes = 32 << 20
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type jobQueue interface {
	TryEnqueue(job jobs.Job) error
}

// SyncConfig tunes the remote spreadsheet synchronisation.
type SyncConfig struct {
	Enabled       bool
	URL           string
	Timeout       time.Duration
	IncludeImages bool
}

// SyncService pushes and pulls the whole class state to a remote script endpoint.
type SyncService struct {
	state   *StateAccessor
	client  httpDoer
	queue   jobQueue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     SyncConfig
	flight  singleflight.Group

	mu       sync.Mutex
	lastErr  error
	lastSync time.Time
}

// NewSyncService constructs the service. A nil client falls back to an
// http.Client with the configured timeout.
func NewSyncService(state *StateAccessor, client httpDoer, metrics *MetricsService, logger *zap.Logger, cfg SyncConfig) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &SyncService{state: state, client: client, metrics: metrics, logger: logger, cfg: cfg}
}

// AttachQueue sets the queue used by EnqueuePush.
func (s *SyncService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// HandleJob is the jobs.Handler for queued pushes.
func (s *SyncService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != syncJobType {
		return fmt.Errorf("unsupported job type %s", job.Type)
	}
	_, err := s.push(ctx, false)
	return err
}

// RecordFailure remembers the last failed background push.
func (s *SyncService) RecordFailure(job jobs.Job, err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.logger.Error("background sync abandoned", zap.String("job_id", job.ID), zap.Error(err))
}

// EnqueuePush schedules a background push. It reports false when sync is
// disabled or no queue is attached. Background pushes always strip images.
func (s *SyncService) EnqueuePush(reason string) (string, bool) {
	if s == nil || !s.cfg.Enabled || s.queue == nil {
		return "", false
	}
	id := uuid.NewString()
	if err := s.queue.TryEnqueue(jobs.Job{ID: id, Type: syncJobType, Payload: reason}); err != nil {
		s.logger.Warn("sync push not queued", zap.String("reason", reason), zap.Error(err))
		return "", false
	}
	return id, true
}

// Push uploads the current state immediately.
func (s *SyncService) Push(ctx context.Context) (*dto.SyncResult, error) {
	return s.push(ctx, s.cfg.IncludeImages)
}

func (s *SyncService) push(ctx context.Context, includeImages bool) (*dto.SyncResult, error) {
	key := fmt.Sprintf("push:%t", includeImages)
	// The shared push outlives any single caller.
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()
		return s.doPush(shared, includeImages)
	})
	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "sync push abandoned by caller")
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dto.SyncResult), nil
	}
}

func (s *SyncService) doPush(ctx context.Context, includeImages bool) (*dto.SyncResult, error) {
	db, cfg, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load state")
	}
	endpoint, err := s.endpoint(cfg)
	if err != nil {
		return nil, err
	}
	if !includeImages {
		cfg = stripImages(cfg)
	}

	body, err := json.Marshal(syncPayload{DB: db, Config: cfg})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode state")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "invalid sync url")
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	raw, err := s.do(req)
	if err != nil {
		s.metrics.RecordSync(syncDirectionPush, false)
		return nil, err
	}

	var ack struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &ack); err != nil || ack.Status != "success" {
		s.metrics.RecordSync(syncDirectionPush, false)
		return nil, appErrors.Clone(appErrors.ErrSyncUnavailable, "remote endpoint did not acknowledge the save")
	}

	s.metrics.RecordSync(syncDirectionPush, true)
	now := s.markSynced()
	s.logger.Info("state pushed", zap.Int("students", len(db)), zap.Bool("images", includeImages))
	return &dto.SyncResult{Direction: syncDirectionPush, Students: len(db), At: now}, nil
}

// Pull downloads the remote state and replaces the local copy. Images and
// omitted resources missing remotely are kept from the local configuration.
func (s *SyncService) Pull(ctx context.Context) (*dto.SyncResult, error) {
	_, current, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load state")
	}
	endpoint, err := s.endpoint(current)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "invalid sync url")
	}
	raw, err := s.do(req)
	if err != nil {
		s.metrics.RecordSync(syncDirectionPull, false)
		return nil, err
	}

	var payload struct {
		DB     json.RawMessage `json:"db"`
		Config json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		s.metrics.RecordSync(syncDirectionPull, false)
		return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "remote payload is not a JSON object")
	}

	var (
		remoteDB  models.Database
		remoteCfg *models.AppConfig
		dropped   int
	)
	if present(payload.DB) {
		remoteDB, dropped, err = models.DecodeDatabase(payload.DB)
		if err != nil {
			s.metrics.RecordSync(syncDirectionPull, false)
			return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "remote database has an invalid shape")
		}
	}
	if present(payload.Config) {
		cfg, err := models.DecodeAppConfig(payload.Config)
		if err != nil {
			s.metrics.RecordSync(syncDirectionPull, false)
			return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "remote config has an invalid shape")
		}
		remoteCfg = &cfg
	}

	students := 0
	err = s.state.Replace(ctx, func(db models.Database, cfg models.AppConfig) (models.Database, models.AppConfig, error) {
		if remoteDB != nil {
			db = remoteDB
		}
		if remoteCfg != nil {
			cfg = mergeLocalImages(*remoteCfg, cfg)
		}
		students = len(db)
		return db, cfg, nil
	})
	if err != nil {
		s.metrics.RecordSync(syncDirectionPull, false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store pulled state")
	}

	s.metrics.RecordSync(syncDirectionPull, true)
	now := s.markSynced()
	s.logger.Info("state pulled", zap.Int("students", students), zap.Int("dropped_records", dropped))
	return &dto.SyncResult{Direction: syncDirectionPull, Students: students, At: now}, nil
}

func (s *SyncService) endpoint(cfg models.AppConfig) (string, error) {
	url := strings.TrimSpace(s.cfg.URL)
	if url == "" {
		url = strings.TrimSpace(cfg.SyncURL)
	}
	if url == "" {
		return "", appErrors.Clone(appErrors.ErrSyncUnavailable, "sync url is not configured")
	}
	return url, nil
}

func (s *SyncService) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "remote endpoint unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSyncResponseBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSyncUnavailable.Code, appErrors.ErrSyncUnavailable.Status, "failed to read remote response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, appErrors.Clone(appErrors.ErrSyncUnavailable, fmt.Sprintf("remote endpoint returned status %d", resp.StatusCode))
	}
	return raw, nil
}

func (s *SyncService) markSynced() time.Time {
	now := time.Now().UTC()
	s.mu.Lock()
	s.lastSync = now
	s.lastErr = nil
	s.mu.Unlock()
	return now
}

type syncPayload struct {
	DB     models.Database  `json:"db"`
	Config models.AppConfig `json:"config"`
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func stripImages(cfg models.AppConfig) models.AppConfig {
	items := make([]models.StoreItem, len(cfg.StoreItems))
	for i, item := range cfg.StoreItems {
		item.Image = ""
		items[i] = item
	}
	cfg.StoreItems = items

	resources := make([]models.LearningResource, len(cfg.LearningResources))
	for i, res := range cfg.LearningResources {
		if res.Type == "file" && len(res.URL) > inlineURLLimit {
			res.URL = omittedResourceURL
		}
		resources[i] = res
	}
	cfg.LearningResources = resources
	return cfg
}

func mergeLocalImages(remote, local models.AppConfig) models.AppConfig {
	localImages := make(map[string]string, len(local.StoreItems))
	for _, item := range local.StoreItems {
		localImages[item.ID] = item.Image
	}
	items := make([]models.StoreItem, len(remote.StoreItems))
	for i, item := range remote.StoreItems {
		if item.Image == "" {
			item.Image = localImages[item.ID]
		}
		items[i] = item
	}
	remote.StoreItems = items

	localURLs := make(map[string]string, len(local.LearningResources))
	for _, res := range local.LearningResources {
		localURLs[res.ID] = res.URL
	}
	resources := make([]models.LearningResource, len(remote.LearningResources))
	for i, res := range remote.LearningResources {
		if res.URL == omittedResourceURL {
			res.URL = localURLs[res.ID]
		}
		resources[i] = res
	}
	remote.LearningResources = resources
	return remote
}

// Status reports the last successful sync time and the last abandoned push error.
func (s *SyncService) Status() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSync, s.lastErr
}
