package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-assignment-manager/internal/repository"
	"github.com/noah-isme/canvas-assignment-manager/pkg/config"
)

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cases := []struct {
		backend string
		check   func(t *testing.T, kv interface{})
	}{
		{config.StoreBackendMemory, func(t *testing.T, kv interface{}) {
			assert.IsType(t, &repository.MemoryKVRepository{}, kv)
		}},
		{config.StoreBackendFile, func(t *testing.T, kv interface{}) {
			assert.IsType(t, &repository.FileKVRepository{}, kv)
		}},
		{config.StoreBackendSQLite, func(t *testing.T, kv interface{}) {
			assert.IsType(t, &repository.SQLKVRepository{}, kv)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			cfg := &config.Config{
				Store:  config.StoreConfig{Backend: tc.backend, FileDir: filepath.Join(dir, "files")},
				SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "db", "canvas.db")},
			}
			kv, closeFn, err := openBackend(ctx, cfg, nil)
			require.NoError(t, err)
			defer closeFn()
			tc.check(t, kv)

			require.NoError(t, kv.Set(ctx, "k", "v"))
			got, ok, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", got)
		})
	}
}

func TestOpenBackendRejectsUnknown(t *testing.T) {
	_, closeFn, err := openBackend(context.Background(), &config.Config{Store: config.StoreConfig{Backend: "etcd"}}, nil)
	require.Error(t, err)
	closeFn()
	assert.Contains(t, err.Error(), "etcd")
}
