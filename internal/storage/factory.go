// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/skyspect/inspection/internal/config"
	"github.com/skyspect/inspection/internal/database"
	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/internal/storage/gormstore"
	"github.com/skyspect/inspection/internal/storage/memory"
	"github.com/skyspect/inspection/internal/storage/websocket"
)

// Dependencies holds the shared collaborators handed to every backend.
type Dependencies struct {
	Origin geo.Origin
	Logger *slog.Logger
	DBLog  zerolog.Logger
}

// NewBackend creates a single storage backend by type name.
func NewBackend(kind string, cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch kind {
	case "memory":
		return memory.New(cfg.Memory, deps.Origin), nil
	case "sqlite":
		mgr := database.NewManager(deps.DBLog)
		db, err := mgr.GetSqliteDB(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite backend: %w", err)
		}
		mgr.DB = db
		mgr.IsValid = true
		return gormstore.New(gormstore.Dependencies{
			Manager: mgr,
			Origin:  deps.Origin,
			Logger:  deps.Logger,
		}), nil
	case "postgres":
		mgr := database.NewManager(deps.DBLog)
		return gormstore.New(gormstore.Dependencies{
			Manager: mgr,
			Origin:  deps.Origin,
			Logger:  deps.Logger,
		}), nil
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.Websocket.URL,
			Secret: cfg.Websocket.Secret,
		}), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", kind)
	}
}

// NewBackends builds one backend per configured storage type.
func NewBackends(cfg config.StorageConfig, deps Dependencies) ([]Backend, error) {
	if len(cfg.Types) == 0 {
		return nil, fmt.Errorf("no storage types configured")
	}

	backends := make([]Backend, 0, len(cfg.Types))
	for _, kind := range cfg.Types {
		b, err := NewBackend(kind, cfg, deps)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}
