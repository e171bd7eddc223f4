package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/handler"
	"github.com/nesiel/class-bank/internal/ingest"
	internalmiddleware "github.com/nesiel/class-bank/internal/middleware"
	"github.com/nesiel/class-bank/internal/models"
	"github.com/nesiel/class-bank/internal/repository"
	"github.com/nesiel/class-bank/internal/service"
	"github.com/nesiel/class-bank/pkg/config"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/export"
	"github.com/nesiel/class-bank/pkg/jobs"
	"github.com/nesiel/class-bank/pkg/logger"
	corsmiddleware "github.com/nesiel/class-bank/pkg/middleware/cors"
	reqidmiddleware "github.com/nesiel/class-bank/pkg/middleware/requestid"
	"github.com/nesiel/class-bank/pkg/response"
)

type application struct {
	router *gin.Engine
	queue  *jobs.Queue
	close  func() error
}

// Start launches background workers. Pushes are only queued when sync is enabled.
func (a *application) Start(ctx context.Context) {
	if a.queue != nil {
		a.queue.Start(ctx)
	}
}

// Shutdown stops workers and releases the state store.
func (a *application) Shutdown() error {
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.close != nil {
		return a.close()
	}
	return nil
}

func newApplication(cfg *config.Config, logr *zap.Logger, store repository.StateStore, closeStore func() error) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	stateRepo := repository.NewStateRepository(store, cfg.State.KeyPrefix, logr)
	state := service.NewStateAccessor(stateRepo, metrics)

	authSvc, err := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		PinHash:           cfg.Teacher.PinHash,
		Pin:               cfg.Teacher.Pin,
	})
	if err != nil {
		return nil, fmt.Errorf("init auth: %w", err)
	}

	syncSvc := service.NewSyncService(state, nil, metrics, logr, service.SyncConfig{
		Enabled:       cfg.Sync.Enabled,
		URL:           cfg.Sync.URL,
		Timeout:       cfg.Sync.Timeout,
		IncludeImages: cfg.Sync.IncludeImages,
	})
	var queue *jobs.Queue
	if cfg.Sync.Enabled {
		queue = jobs.NewQueue("sync", syncSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Sync.Workers,
			MaxRetries: cfg.Sync.Retries,
			RetryDelay: cfg.Sync.RetryDelay,
			Logger:     logr,
			OnFailure:  syncSvc.RecordFailure,
		})
		syncSvc.AttachQueue(queue)
	}

	var scheduler interface{ EnqueuePush(string) (string, bool) }
	if cfg.Sync.AutoPush {
		scheduler = syncSvc
	}
	pipeline, err := pipelineOptions(cfg.Import)
	if err != nil {
		return nil, err
	}
	importSvc := service.NewImportService(state, scheduler, metrics, validate, logr, service.ImportConfig{
		MaxFileSizeBytes: cfg.Import.MaxFileSizeBytes,
		Pipeline:         pipeline,
	})
	studentSvc := service.NewStudentService(state, validate, logr)
	vocabularySvc := service.NewVocabularyService(state, validate, logr)
	exportSvc := service.NewExportService(state, export.NewCSVExporter(), export.NewPDFExporter(export.PDFOptions{
		FontPath:    cfg.Export.PDFFontPath,
		RightToLeft: cfg.Export.RightToLeft,
	}), logr, service.ExportConfig{RightToLeft: cfg.Export.RightToLeft})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, state)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	importHandler := handler.NewImportHandler(importSvc)
	vocabularyHandler := handler.NewVocabularyHandler(vocabularySvc)
	syncHandler := handler.NewSyncHandler(syncSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/teacher", authHandler.Login)
	api.GET("/leaderboard", studentHandler.Leaderboard)
	api.GET("/vocabulary", vocabularyHandler.Get)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	teacher := secured.Group("")
	teacher.Use(internalmiddleware.RequireRoles(models.RoleTeacher))
	teacher.GET("/students", studentHandler.List)
	teacher.GET("/students/:name", studentHandler.Get)
	teacher.POST("/imports/:kind", importHandler.Import)
	teacher.PUT("/vocabulary", vocabularyHandler.Update)
	teacher.DELETE("/vocabulary", vocabularyHandler.Reset)
	teacher.POST("/sync/push", syncHandler.Push)
	teacher.POST("/sync/pull", syncHandler.Pull)
	teacher.GET("/sync/status", syncHandler.Status)
	teacher.GET("/exports/certificates", exportHandler.Certificates)
	teacher.GET("/exports/standings", exportHandler.Standings)
	teacher.GET("/metrics/summary", metricsHandler.Summary)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	return &application{router: r, queue: queue, close: closeStore}, nil
}

func pipelineOptions(cfg config.ImportConfig) (ingest.Options, error) {
	opts := ingest.Options{
		DefaultTeacher: cfg.DefaultTeacher,
		DefaultSubject: cfg.DefaultSubject,
		DateLayout:     cfg.DateLayout,
		MinNameLength:  cfg.MinNameLength,
		HeaderScanRows: cfg.HeaderScanRows,
		Duplicates:     ingest.DuplicateRows(cfg.Duplicates),
	}
	switch opts.Duplicates {
	case "", ingest.DuplicateAccumulate, ingest.DuplicateReplace:
	default:
		return opts, fmt.Errorf("unknown duplicate row policy %q", cfg.Duplicates)
	}
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return opts, fmt.Errorf("load import timezone: %w", err)
		}
		opts.Now = func() time.Time { return time.Now().In(loc) }
	}
	return opts, nil
}
