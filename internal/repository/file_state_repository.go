package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/nesiel/class-bank/pkg/errors"
	"github.com/nesiel/class-bank/pkg/storage"
)

// FileStateRepository stores each key as a JSON file under a directory.
type FileStateRepository struct {
	storage *storage.LocalStorage
}

// NewFileStateRepository constructs the repository on top of local storage.
func NewFileStateRepository(store *storage.LocalStorage) *FileStateRepository {
	return &FileStateRepository{storage: store}
}

// Get reads the file backing key.
func (r *FileStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := r.storage.Read(fileName(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("read state %s: %w", key, err)
	}
	return data, nil
}

// Put replaces the file backing key.
func (r *FileStateRepository) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.storage.Save(fileName(key), value); err != nil {
		return fmt.Errorf("write state %s: %w", key, err)
	}
	return nil
}

// PutMany writes entries one file at a time in key order. Each file is
// replaced atomically but the set as a whole is not.
func (r *FileStateRepository) PutMany(ctx context.Context, entries map[string][]byte) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := r.Put(ctx, key, entries[key]); err != nil {
			return err
		}
	}
	return nil
}

var fileNameReplacer = strings.NewReplacer(":", "-", "/", "-", "\\", "-", "..", "-")

func fileName(key string) string {
	return fileNameReplacer.Replace(key) + ".json"
}
