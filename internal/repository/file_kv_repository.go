package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/canvas-assignment-manager/pkg/storage"
)

type fileStorage interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, bool, error)
	Delete(name string) error
}

// FileKVRepository stores each key as a JSON file under a directory.
type FileKVRepository struct {
	files  fileStorage
	prefix string
}

// NewFileKVRepository opens (and creates) dir for key-value storage.
func NewFileKVRepository(dir, prefix string) (*FileKVRepository, error) {
	files, err := storage.NewLocalStorage(dir)
	if err != nil {
		return nil, err
	}
	return &FileKVRepository{files: files, prefix: prefix}, nil
}

// Get reads the file for key.
func (r *FileKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	data, ok, err := r.files.Read(r.filename(key))
	if err != nil {
		return "", false, fmt.Errorf("file kv get %s: %w", key, err)
	}
	return string(data), ok, nil
}

// Set replaces the file for key.
func (r *FileKVRepository) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.files.Save(r.filename(key), []byte(value)); err != nil {
		return fmt.Errorf("file kv set %s: %w", key, err)
	}
	return nil
}

// Remove deletes the file for key.
func (r *FileKVRepository) Remove(ctx context.Context, key string) error {
	if err := r.files.Delete(r.filename(key)); err != nil {
		return fmt.Errorf("file kv remove %s: %w", key, err)
	}
	return nil
}

func (r *FileKVRepository) filename(key string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(namespaced(r.prefix, key))
	return name + ".json"
}
