package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/dto"
	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

const (
	defaultStudentPageSize = 50
	defaultLeaderboardSize = 10

	leaderboardRegular  = "regular"
	leaderboardSemester = "semester"
)

// StudentService provides read access to student records.
type StudentService struct {
	state     *StateAccessor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the service.
func NewStudentService(state *StateAccessor, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentService{state: state, validator: validate, logger: logger}
}

// List returns a filtered, sorted page of students.
func (s *StudentService) List(ctx context.Context, filter dto.StudentFilter) ([]dto.StudentSummary, *models.Pagination, error) {
	if err := s.validator.StructCtx(ctx, filter); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student filter")
	}
	db, err := s.state.Database(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	items := make([]dto.StudentSummary, 0, len(db))
	for _, name := range db.Names() {
		student := db[name]
		if search != "" && !strings.Contains(strings.ToLower(name), search) && !strings.Contains(strings.ToLower(student.Class), search) {
			continue
		}
		items = append(items, dto.StudentSummary{
			Name:          name,
			Class:         student.Class,
			Total:         student.Total,
			SemesterScore: student.SemesterScore,
			LogCount:      len(student.Logs),
			Hidden:        student.HiddenFromPodium,
		})
	}

	switch filter.Sort {
	case "total":
		sort.SliceStable(items, func(i, j int) bool { return items[i].Total > items[j].Total })
	case "semester":
		sort.SliceStable(items, func(i, j int) bool {
			return semesterValue(items[i].SemesterScore) > semesterValue(items[j].SemesterScore)
		})
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultStudentPageSize
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}

	start := (page - 1) * size
	if start >= len(items) {
		return []dto.StudentSummary{}, pagination, nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pagination, nil
}

// Get returns one student by display name.
func (s *StudentService) Get(ctx context.Context, name string) (*models.Student, error) {
	db, err := s.state.Database(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	student, ok := db[strings.TrimSpace(name)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &student, nil
}

// Leaderboard ranks visible students by total or by semester score. Equal
// scores share a rank.
func (s *StudentService) Leaderboard(ctx context.Context, query dto.LeaderboardQuery) ([]dto.LeaderboardEntry, error) {
	if err := s.validator.StructCtx(ctx, query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leaderboard query")
	}
	db, err := s.state.Database(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	mode := query.Mode
	if mode == "" {
		mode = leaderboardRegular
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	return rankStudents(db, mode, limit), nil
}

func rankStudents(db models.Database, mode string, limit int) []dto.LeaderboardEntry {
	entries := make([]dto.LeaderboardEntry, 0, len(db))
	for _, name := range db.Names() {
		student := db[name]
		if student.HiddenFromPodium {
			continue
		}
		score := student.Total
		if mode == leaderboardSemester {
			if student.SemesterScore == nil {
				continue
			}
			score = *student.SemesterScore
		}
		entries = append(entries, dto.LeaderboardEntry{Name: name, Class: student.Class, Score: score})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })

	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func semesterValue(score *float64) float64 {
	if score == nil {
		return math.Inf(-1)
	}
	return *score
}
