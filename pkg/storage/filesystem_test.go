package storage

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveReadDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("state/db.json", []byte(`{"a":1}`))
	require.NoError(t, err)

	data, err := store.Read("state/db.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	_, err = store.Save("state/db.json", []byte(`{}`))
	require.NoError(t, err)
	data, err = store.Read("state/db.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	entries, err := os.ReadDir(store.Path("state"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not linger")

	require.NoError(t, store.Delete("state/db.json"))
	require.NoError(t, store.Delete("state/db.json"))

	_, err = store.Read("state/db.json")
	assert.True(t, errors.Is(err, ErrNotExist))
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.json", []byte("x"))
	assert.Error(t, err)
	_, err = store.Read("/etc/passwd")
	assert.Error(t, err)
	assert.Empty(t, store.Path(""))
}
