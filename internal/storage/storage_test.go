// internal/storage/storage_test.go
package storage_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspect/inspection/internal/config"
	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/internal/storage"
	"github.com/skyspect/inspection/internal/storage/gormstore"
	"github.com/skyspect/inspection/internal/storage/memory"
	"github.com/skyspect/inspection/internal/storage/websocket"
)

// Compile-time interface checks.
var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Exportable = (*memory.Backend)(nil)
	_ storage.Backend    = (*gormstore.Backend)(nil)
	_ storage.Backend    = (*websocket.Backend)(nil)
)

func testDeps() storage.Dependencies {
	return storage.Dependencies{
		Origin: geo.NewOrigin(47.5596, 7.5886),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		DBLog:  zerolog.Nop(),
	}
}

func TestNewBackendByType(t *testing.T) {
	cfg := config.StorageConfig{
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}

	b, err := storage.NewBackend("memory", cfg, testDeps())
	require.NoError(t, err)
	assert.IsType(t, (*memory.Backend)(nil), b)

	b, err = storage.NewBackend("websocket", cfg, testDeps())
	require.NoError(t, err)
	assert.IsType(t, (*websocket.Backend)(nil), b)
}

func TestNewBackendUnknownType(t *testing.T) {
	_, err := storage.NewBackend("carrier-pigeon", config.StorageConfig{}, testDeps())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

func TestNewBackendsBuildsAllConfigured(t *testing.T) {
	cfg := config.StorageConfig{
		Types:  []string{"memory", "websocket"},
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}

	backends, err := storage.NewBackends(cfg, testDeps())
	require.NoError(t, err)
	assert.Len(t, backends, 2)
}

func TestNewBackendsRequiresTypes(t *testing.T) {
	_, err := storage.NewBackends(config.StorageConfig{}, testDeps())
	assert.Error(t, err)
}
