package service

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/dto"
	"github.com/nesiel/class-bank/internal/ingest"
	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

const maxActionNameLength = 64

// VocabularyService manages the behaviour vocabulary stored in the class configuration.
type VocabularyService struct {
	state     *StateAccessor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVocabularyService constructs the service and registers the action_name rule.
func NewVocabularyService(state *StateAccessor, validate *validator.Validate, logger *zap.Logger) *VocabularyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("action_name", validateActionName)
	return &VocabularyService{state: state, validator: validate, logger: logger}
}

// Get returns the active vocabulary.
func (s *VocabularyService) Get(ctx context.Context) (*dto.VocabularyResponse, error) {
	cfg, err := s.state.Config(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vocabulary")
	}
	return vocabularyResponse(ingest.NewVocabulary(cfg.ActionScores)), nil
}

// Update replaces the vocabulary.
func (s *VocabularyService) Update(ctx context.Context, req dto.UpdateVocabularyRequest) (*dto.VocabularyResponse, error) {
	if err := s.validator.StructCtx(ctx, req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vocabulary payload")
	}
	scores := make(map[string]float64, len(req.Scores))
	for name, score := range req.Scores {
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scores must be finite numbers")
		}
		key := strings.TrimSpace(name)
		if _, dup := scores[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate action "+key)
		}
		scores[key] = score
	}
	return s.save(ctx, scores)
}

// Reset restores the built-in vocabulary.
func (s *VocabularyService) Reset(ctx context.Context) (*dto.VocabularyResponse, error) {
	return s.save(ctx, models.DefaultActionScores())
}

func (s *VocabularyService) save(ctx context.Context, scores map[string]float64) (*dto.VocabularyResponse, error) {
	err := s.state.UpdateConfig(ctx, func(cfg models.AppConfig) (models.AppConfig, error) {
		cfg.ActionScores = scores
		return cfg, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save vocabulary")
	}
	vocab := ingest.NewVocabulary(scores)
	s.logger.Info("vocabulary updated", zap.Int("actions", vocab.Len()), zap.Bool("default", vocab.IsDefault()))
	return vocabularyResponse(vocab), nil
}

func vocabularyResponse(vocab ingest.Vocabulary) *dto.VocabularyResponse {
	resp := &dto.VocabularyResponse{Actions: make([]dto.VocabularyAction, 0, vocab.Len()), IsDefault: vocab.IsDefault()}
	for _, key := range vocab.Keys() {
		score, _ := vocab.Score(key)
		resp.Actions = append(resp.Actions, dto.VocabularyAction{Name: key, Score: score})
	}
	return resp
}

// validateActionName rejects blank names, names with digits (they would be
// read as counts) and overly long names.
func validateActionName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	if name == "" || utf8.RuneCountInString(name) > maxActionNameLength {
		return false
	}
	return !strings.ContainsAny(name, "0123456789")
}
