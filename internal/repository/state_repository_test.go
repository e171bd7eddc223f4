package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/storage"
)

type failingStore struct{ err error }

func (f failingStore) Get(context.Context, string) ([]byte, error)      { return nil, f.err }
func (f failingStore) Put(context.Context, string, []byte) error        { return f.err }
func (f failingStore) PutMany(context.Context, map[string][]byte) error { return f.err }

func TestStateRepositoryMissingBlobsYieldDefaults(t *testing.T) {
	repo := NewStateRepository(NewMemoryStateRepository(), "class", nil)

	db, err := repo.LoadDatabase(context.Background())
	require.NoError(t, err)
	assert.Empty(t, db)

	cfg, err := repo.LoadConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultActionScores(), cfg.ActionScores)
}

func TestStateRepositoryRoundTrip(t *testing.T) {
	store := NewMemoryStateRepository()
	repo := NewStateRepository(store, "class", nil)
	ctx := context.Background()

	db := models.Database{"דנה": {Name: "דנה", Total: 4, Logs: []models.LogEntry{{Action: "השתתפות", Count: 4, Score: 4}}}}
	require.NoError(t, repo.SaveDatabase(ctx, db))

	raw, err := store.Get(ctx, "class:db")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "השתתפות")

	loaded, err := repo.LoadDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4.0, loaded["דנה"].Total)

	cfg := models.DefaultAppConfig()
	cfg.ActionScores = map[string]float64{"עזרה": 3}
	require.NoError(t, repo.SaveConfig(ctx, cfg))
	loadedCfg, err := repo.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"עזרה": 3}, loadedCfg.ActionScores)
}

func TestStateRepositoryGuardsMalformedBlobs(t *testing.T) {
	store := NewMemoryStateRepository()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "db", []byte(`[1,2,3]`)))
	require.NoError(t, store.Put(ctx, "config", []byte(`["not","an","object"]`)))
	repo := NewStateRepository(store, "", nil)

	_, err := repo.LoadDatabase(ctx)
	assert.Error(t, err)

	cfg, err := repo.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultActionScores(), cfg.ActionScores)
}

func TestStateRepositoryPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := NewStateRepository(failingStore{err: boom}, "class", nil)
	ctx := context.Background()

	_, err := repo.LoadDatabase(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = repo.LoadConfig(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, repo.SaveDatabase(ctx, nil), boom)
	assert.ErrorIs(t, repo.ReplaceAll(ctx, nil, models.DefaultAppConfig()), boom)
}

func TestFileStateRepository(t *testing.T) {
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := NewFileStateRepository(local)
	ctx := context.Background()

	_, err = repo.Get(ctx, "class:db")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)

	require.NoError(t, repo.PutMany(ctx, map[string][]byte{
		"class:db":     []byte(`{}`),
		"class:config": []byte(`{"theme":"dark"}`),
	}))
	raw, err := repo.Get(ctx, "class:config")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(raw))
	assert.FileExists(t, local.Path("class-db.json"))
}

func TestMemoryStateRepositoryCopiesValues(t *testing.T) {
	repo := NewMemoryStateRepository()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, repo.Put(ctx, "k", value))
	value[0] = 'x'

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestRedisStateRepositoryWithoutClient(t *testing.T) {
	repo := NewRedisStateRepository(nil, nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, "class:db")
	assert.ErrorIs(t, err, appErrors.ErrStateNotFound)
	assert.Error(t, repo.Put(ctx, "class:db", []byte(`{}`)))
	assert.Error(t, repo.PutMany(ctx, map[string][]byte{"class:db": []byte(`{}`)}))
	assert.NoError(t, repo.Close())
}
