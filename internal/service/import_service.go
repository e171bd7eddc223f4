package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/dto"
	"github.com/nesiel/class-bank/internal/ingest"
	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// ImportKind selects what a spreadsheet holds and how it is merged.
type ImportKind string

const (
	ImportBehavior ImportKind = "behavior"
	ImportContacts ImportKind = "contacts"
	ImportSemester ImportKind = "semester"
	ImportGrades   ImportKind = "grades"
)

// Valid reports whether k is a known kind.
func (k ImportKind) Valid() bool {
	switch k {
	case ImportBehavior, ImportContacts, ImportSemester, ImportGrades:
		return true
	}
	return false
}

// ImportUpload is one uploaded file.
type ImportUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

type pushScheduler interface {
	EnqueuePush(reason string) (string, bool)
}

// ImportConfig tunes ImportService.
type ImportConfig struct {
	MaxFileSizeBytes int64
	Pipeline         ingest.Options
}

// ImportService turns uploaded spreadsheets into merged student records.
type ImportService struct {
	state     *StateAccessor
	pipeline  *ingest.Pipeline
	sync      pushScheduler
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ImportConfig
}

// NewImportService constructs the service.
func NewImportService(state *StateAccessor, sync pushScheduler, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ImportConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	return &ImportService{
		state:     state,
		pipeline:  ingest.NewPipeline(cfg.Pipeline),
		sync:      sync,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Import reads, parses and merges one spreadsheet. A file that cannot be
// decoded is rejected before the store is touched. With dryRun the parsed
// batch is summarised and nothing is written.
func (s *ImportService) Import(ctx context.Context, kind ImportKind, upload ImportUpload, dryRun bool) (*dto.ImportResult, error) {
	start := time.Now()
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown import kind %q", kind))
	}
	if err := s.validator.Var(upload.Filename, "required"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "filename is required")
	}

	sheet, err := s.decode(upload)
	if err != nil {
		s.metrics.RecordImport(string(kind), outcomeFailure, 0, 0, 0, time.Since(start))
		s.logger.Warn("import rejected", zap.String("kind", string(kind)), zap.String("filename", upload.Filename), zap.Error(err))
		return nil, err
	}

	var result *dto.ImportResult
	if kind == ImportGrades {
		result, err = s.importGrades(ctx, sheet, dryRun)
	} else {
		result, err = s.importStudents(ctx, kind, sheet, dryRun)
	}
	if err != nil {
		s.metrics.RecordImport(string(kind), outcomeFailure, 0, 0, 0, time.Since(start))
		return nil, err
	}
	result.Kind = string(kind)
	result.Filename = upload.Filename
	result.DryRun = dryRun

	outcome := outcomeSuccess
	if dryRun {
		outcome = outcomeDryRun
	} else if s.sync != nil {
		_, result.SyncQueued = s.sync.EnqueuePush("import:" + string(kind))
	}
	s.metrics.RecordImport(string(kind), outcome, result.Stats.RowsRead, result.Stats.RowsSkipped, result.Students, time.Since(start))

	s.logger.Info("import finished",
		zap.String("kind", string(kind)),
		zap.String("filename", upload.Filename),
		zap.Bool("dry_run", dryRun),
		zap.Int("students", result.Students),
		zap.Int("header_row", result.Stats.HeaderRow),
		zap.Bool("header_detected", result.Stats.HeaderDetected),
		zap.Int("rows_read", result.Stats.RowsRead),
		zap.Int("rows_skipped", result.Stats.RowsSkipped),
		zap.Int("log_entries", result.Stats.LogEntries),
		zap.Int("summary_totals", result.Stats.SummaryTotals),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
	)
	return result, nil
}

func (s *ImportService) decode(upload ImportUpload) (*spreadsheet.Sheet, error) {
	if upload.Size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}
	if upload.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	data, err := io.ReadAll(io.LimitReader(upload.Reader, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnreadableWorkbook.Code, appErrors.ErrUnreadableWorkbook.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}
	sheet, err := spreadsheet.Decode(data, upload.Filename)
	if err != nil {
		if errors.Is(err, spreadsheet.ErrUnreadable) {
			return nil, appErrors.Wrap(err, appErrors.ErrUnreadableWorkbook.Code, appErrors.ErrUnreadableWorkbook.Status, appErrors.ErrUnreadableWorkbook.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode upload")
	}
	return sheet, nil
}

func (s *ImportService) importStudents(ctx context.Context, kind ImportKind, sheet *spreadsheet.Sheet, dryRun bool) (*dto.ImportResult, error) {
	cfg, err := s.state.Config(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load configuration")
	}
	vocab := ingest.NewVocabulary(cfg.ActionScores)
	if vocab.Len() == 0 {
		vocab = ingest.DefaultVocabulary()
	}

	batch := s.pipeline.ParseStudents(sheet, vocab)
	result := &dto.ImportResult{Students: batch.Len(), Stats: batch.Stats, Created: []string{}, Updated: []string{}}

	if dryRun {
		for _, update := range batch.Updates() {
			result.Preview = append(result.Preview, dto.ImportStudentPreview{
				Name:        update.Name,
				Class:       update.Class,
				Total:       update.Total,
				LogEntries:  len(update.Logs),
				FromSummary: update.TotalFromSummary,
			})
		}
		return result, nil
	}

	policy := ingest.Policy(kind)
	err = s.state.UpdateDatabase(ctx, func(db models.Database) (models.Database, error) {
		merged, res, err := ingest.Merge(db, batch, policy)
		if err != nil {
			return nil, err
		}
		result.Created = res.Created
		result.Updated = res.Updated
		return merged, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge import")
	}
	return result, nil
}

func (s *ImportService) importGrades(ctx context.Context, sheet *spreadsheet.Sheet, dryRun bool) (*dto.ImportResult, error) {
	grades := s.pipeline.ParseGrades(sheet)
	result := &dto.ImportResult{Students: grades.Len(), Stats: grades.Stats, Created: []string{}, Updated: []string{}}

	if dryRun {
		for _, name := range grades.Names() {
			entries, _ := grades.Get(name)
			result.Preview = append(result.Preview, dto.ImportStudentPreview{Name: name, Grades: len(entries)})
		}
		return result, nil
	}

	err := s.state.UpdateDatabase(ctx, func(db models.Database) (models.Database, error) {
		merged, res := ingest.MergeGrades(db, grades)
		result.Created = res.Created
		result.Updated = res.Updated
		return merged, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to merge grades")
	}
	return result, nil
}
