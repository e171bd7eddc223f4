package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nesiel/class-bank/internal/ingest"
	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

type stubScheduler struct {
	reasons []string
}

func (s *stubScheduler) EnqueuePush(reason string) (string, bool) {
	s.reasons = append(s.reasons, reason)
	return "job-1", true
}

func newTestImportService(t *testing.T) (*ImportService, *StateAccessor, *countingStore, *stubScheduler) {
	t.Helper()
	state, _, store := newTestState(t)
	scheduler := &stubScheduler{}
	opts := ingest.DefaultOptions()
	opts.Now = func() time.Time { return time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC) }
	svc := NewImportService(state, scheduler, NewMetricsService(), nil, nil, ImportConfig{MaxFileSizeBytes: 1 << 20, Pipeline: opts})
	return svc, state, store, scheduler
}

func upload(name string, data []byte) ImportUpload {
	return ImportUpload{Filename: name, Size: int64(len(data)), Reader: bytes.NewReader(data)}
}

func TestImportServiceBehaviorMergesAdditively(t *testing.T) {
	svc, state, _, scheduler := newTestImportService(t)
	ctx := context.Background()

	data := workbook(t, []string{"שם התלמיד", "פירוט"},
		[]interface{}{"דנה כהן", "השתתפות3 איחור1"},
		[]interface{}{"יואב לוי", "עזרה לחבר2"},
	)

	result, err := svc.Import(ctx, ImportBehavior, upload("week1.xlsx", data), false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Students)
	assert.ElementsMatch(t, []string{"דנה כהן", "יואב לוי"}, result.Created)
	assert.True(t, result.SyncQueued)
	assert.Equal(t, []string{"import:behavior"}, scheduler.reasons)

	_, err = svc.Import(ctx, ImportBehavior, upload("week2.xlsx", data), false)
	require.NoError(t, err)

	db, err := state.Database(ctx)
	require.NoError(t, err)
	dana := db["דנה כהן"]
	assert.Equal(t, 4.0, dana.Total)
	require.Len(t, dana.Logs, 4)
	assert.Equal(t, "השתתפות", dana.Logs[0].Action)
	assert.Equal(t, "9.3.2025", dana.Logs[0].Date)
	assert.Equal(t, 4.0, db["יואב לוי"].Total)
}

func TestImportServiceRejectsGarbageWithoutTouchingStore(t *testing.T) {
	svc, _, store, scheduler := newTestImportService(t)

	_, err := svc.Import(context.Background(), ImportBehavior, upload("photo.xlsx", []byte("\x89PNG not a workbook")), false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnreadableWorkbook.Code, appErrors.FromError(err).Code)

	gets, writes := store.accesses()
	assert.Zero(t, gets)
	assert.Zero(t, writes)
	assert.Empty(t, scheduler.reasons)
}

func TestImportServiceRejectsOversizedUpload(t *testing.T) {
	svc, _, store, _ := newTestImportService(t)
	svc.cfg.MaxFileSizeBytes = 10

	_, err := svc.Import(context.Background(), ImportBehavior, ImportUpload{Filename: "big.csv", Size: -1, Reader: bytes.NewReader(make([]byte, 64))}, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErrors.FromError(err).Code)

	_, writes := store.accesses()
	assert.Zero(t, writes)
}

func TestImportServiceDryRunDoesNotWrite(t *testing.T) {
	svc, _, store, scheduler := newTestImportService(t)

	data := workbook(t, []string{"שם התלמיד", "סה\"כ"}, []interface{}{"דנה כהן", 17})
	result, err := svc.Import(context.Background(), ImportSemester, upload("semester.xlsx", data), true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	require.Len(t, result.Preview, 1)
	assert.Equal(t, 17.0, result.Preview[0].Total)
	assert.True(t, result.Preview[0].FromSummary)

	_, writes := store.accesses()
	assert.Zero(t, writes)
	assert.Empty(t, scheduler.reasons)
}

func TestImportServiceContactsKeepExistingValues(t *testing.T) {
	svc, state, _, _ := newTestImportService(t)
	ctx := context.Background()
	require.NoError(t, state.UpdateDatabase(ctx, func(db models.Database) (models.Database, error) {
		db["דנה כהן"] = models.Student{Name: "דנה כהן", Total: 9, Logs: []models.LogEntry{}, ContactInfo: models.ContactInfo{MotherPhone: "0501111111"}}
		return db, nil
	}))

	data := []byte("שם התלמיד,נייד אמא,טלפון בית\nדנה כהן,,02-1234567\n")
	_, err := svc.Import(ctx, ImportContacts, upload("contacts.csv", data), false)
	require.NoError(t, err)

	db, err := state.Database(ctx)
	require.NoError(t, err)
	dana := db["דנה כהן"]
	assert.Equal(t, "0501111111", dana.MotherPhone)
	assert.Equal(t, "021234567", dana.HomePhone)
	assert.Equal(t, 9.0, dana.Total)
}

func TestImportServiceGrades(t *testing.T) {
	svc, state, _, _ := newTestImportService(t)
	ctx := context.Background()

	data := workbook(t, []string{"שם התלמיד", "מתמטיקה", "אנגלית"}, []interface{}{"דנה כהן", 95, 88})
	result, err := svc.Import(ctx, ImportGrades, upload("grades.xlsx", data), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Students)

	db, err := state.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.GradeEntry{{Subject: "מתמטיקה", Score: 95}, {Subject: "אנגלית", Score: 88}}, db["דנה כהן"].Grades)
}

func TestImportServiceSkipsNonFiniteCells(t *testing.T) {
	svc, state, _, _ := newTestImportService(t)
	ctx := context.Background()

	grades := []byte("שם התלמיד,מתמטיקה,אנגלית\nדנה כהן,95,nan\nיואב לוי,inf,77\n")
	result, err := svc.Import(ctx, ImportGrades, upload("grades.csv", grades), false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Students)

	behavior := []byte("שם התלמיד,איחור\nדנה כהן,Inf\nיואב לוי,2\n")
	_, err = svc.Import(ctx, ImportBehavior, upload("behavior.csv", behavior), false)
	require.NoError(t, err)

	db, err := state.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.GradeEntry{{Subject: "מתמטיקה", Score: 95}}, db["דנה כהן"].Grades)
	assert.Equal(t, []models.GradeEntry{{Subject: "אנגלית", Score: 77}}, db["יואב לוי"].Grades)
	assert.Zero(t, db["דנה כהן"].Total)
	assert.Empty(t, db["דנה כהן"].Logs)
	assert.Equal(t, -2.0, db["יואב לוי"].Total)
}

func TestImportServiceUsesStoredVocabulary(t *testing.T) {
	svc, state, _, _ := newTestImportService(t)
	ctx := context.Background()
	require.NoError(t, state.UpdateConfig(ctx, func(cfg models.AppConfig) (models.AppConfig, error) {
		cfg.ActionScores = map[string]float64{"קריאה": 5}
		return cfg, nil
	}))

	data := workbook(t, []string{"שם התלמיד", "פירוט"}, []interface{}{"דנה כהן", "קריאה2 השתתפות4"})
	_, err := svc.Import(ctx, ImportBehavior, upload("custom.xlsx", data), false)
	require.NoError(t, err)

	db, err := state.Database(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10.0, db["דנה כהן"].Total)
}

func TestImportServiceUnknownKind(t *testing.T) {
	svc, _, _, _ := newTestImportService(t)
	_, err := svc.Import(context.Background(), ImportKind("attendance"), upload("a.csv", []byte("x")), false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
