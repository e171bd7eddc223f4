package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/export"
	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

var (
	certificateHeaders = []string{"שם התלמיד", "הערה לתעודה", "חיזוק לימודי", "ציונים"}
	standingsHeaders   = []string{"דירוג", "שם", "כיתה", "ניקוד"}
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	RightToLeft bool
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders student data into downloadable files.
type ExportService struct {
	state  *StateAccessor
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	cfg    ExportConfig
	now    func() time.Time
}

// NewExportService constructs the service.
func NewExportService(state *StateAccessor, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{state: state, csv: csv, pdf: pdf, logger: logger, cfg: cfg, now: time.Now}
}

// CertificateComments builds a workbook with one row per student: name,
// certificate comment, academic reinforcement and grades.
func (s *ExportService) CertificateComments(ctx context.Context) (*ExportFile, error) {
	db, err := s.state.Database(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	records := make([][]interface{}, 0, len(db))
	for _, name := range db.Names() {
		student := db[name]
		records = append(records, []interface{}{name, student.CertificateComment, student.Reinforcement, formatGrades(student.Grades)})
	}

	data, err := spreadsheet.Write(certificateHeaders, records, spreadsheet.WriteOptions{SheetName: "הערות לתעודה", RightToLeft: s.cfg.RightToLeft})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render workbook")
	}
	s.logger.Info("certificate comments exported", zap.Int("students", len(records)))
	return &ExportFile{
		Filename:    s.filename("certificate-comments", FormatXLSX),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

// Standings renders the leaderboard for mode as csv or pdf.
func (s *ExportService) Standings(ctx context.Context, mode, format string) (*ExportFile, error) {
	if mode == "" {
		mode = leaderboardRegular
	}
	if mode != leaderboardRegular && mode != leaderboardSemester {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown leaderboard mode %q", mode))
	}
	db, err := s.state.Database(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	ranked := rankStudents(db, mode, 0)
	dataset := export.Dataset{Headers: standingsHeaders, Rows: make([]map[string]string, 0, len(ranked))}
	for _, entry := range ranked {
		dataset.Rows = append(dataset.Rows, map[string]string{
			standingsHeaders[0]: strconv.Itoa(entry.Rank),
			standingsHeaders[1]: entry.Name,
			standingsHeaders[2]: entry.Class,
			standingsHeaders[3]: strconv.FormatFloat(entry.Score, 'f', -1, 64),
		})
	}

	var (
		data        []byte
		contentType string
	)
	switch strings.ToLower(format) {
	case "", FormatCSV:
		format = FormatCSV
		data, err = s.csv.Render(dataset)
		contentType = "text/csv; charset=utf-8"
	case FormatPDF:
		format = FormatPDF
		data, err = s.pdf.Render(dataset, standingsTitle(mode))
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render standings")
	}
	return &ExportFile{Filename: s.filename("standings-"+mode, format), ContentType: contentType, Data: data}, nil
}

func (s *ExportService) filename(base, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, s.now().Format("20060102"), ext)
}

func standingsTitle(mode string) string {
	if mode == leaderboardSemester {
		return "טבלת מחצית"
	}
	return "טבלת הניקוד"
}

func formatGrades(grades []models.GradeEntry) string {
	parts := make([]string, 0, len(grades))
	for _, grade := range grades {
		parts = append(parts, fmt.Sprintf("%s: %s", grade.Subject, strconv.FormatFloat(grade.Score, 'f', -1, 64)))
	}
	return strings.Join(parts, ", ")
}
