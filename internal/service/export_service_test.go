package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

func newTestExportService(t *testing.T) *ExportService {
	t.Helper()
	state, repo, _ := newTestState(t)
	seedDatabase(t, repo, models.Database{
		"דנה": {
			Name:               "דנה",
			Total:              8,
			CertificateComment: "תלמידה מצטיינת",
			Reinforcement:      "קריאה",
			Grades:             []models.GradeEntry{{Subject: "חשבון", Score: 95}, {Subject: "אנגלית", Score: 87.5}},
		},
		"יואב": {Name: "יואב", Total: 3},
	})
	svc := NewExportService(state, nil, nil, nil, ExportConfig{RightToLeft: true})
	svc.now = func() time.Time { return time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportServiceCertificateComments(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.CertificateComments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "certificate-comments-20250630.xlsx", file.Filename)

	sheet, err := spreadsheet.Decode(file.Data, file.Filename)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "שם התלמיד", sheet.Rows[0][0].String())
	assert.Equal(t, "דנה", sheet.Rows[1][0].String())
	assert.Equal(t, "תלמידה מצטיינת", sheet.Rows[1][1].String())
	assert.Equal(t, "חשבון: 95, אנגלית: 87.5", sheet.Rows[1][3].String())
}

func TestExportServiceStandingsCSV(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.Standings(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "standings-regular-20250630.csv", file.Filename)
	body := strings.TrimPrefix(string(file.Data), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1,דנה,,8", lines[1])
	assert.Equal(t, "2,יואב,,3", lines[2])
}

func TestExportServiceStandingsPDF(t *testing.T) {
	svc := newTestExportService(t)

	file, err := svc.Standings(context.Background(), "regular", "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceStandingsValidation(t *testing.T) {
	svc := newTestExportService(t)

	_, err := svc.Standings(context.Background(), "weekly", "csv")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	_, err = svc.Standings(context.Background(), "regular", "docx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
