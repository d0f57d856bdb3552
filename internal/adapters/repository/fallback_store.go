package repository

import (
	"context"

	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// FallbackStore mirrors every write into memory so that reads keep working
// while the primary backend is failing. Write errors from the primary are
// still returned to the caller.
type FallbackStore struct {
	primary ports.KeyValueStore
	mirror  *MemoryStore
	logger  *logger.Logger
}

var (
	_ ports.KeyValueStore  = (*FallbackStore)(nil)
	_ ports.StoreInspector = (*FallbackStore)(nil)
)

// NewFallbackStore wraps primary with an in-memory mirror
func NewFallbackStore(primary ports.KeyValueStore, appLogger *logger.Logger) *FallbackStore {
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	return &FallbackStore{
		primary: primary,
		mirror:  NewMemoryStore(),
		logger:  appLogger.WithComponent("fallback_store"),
	}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, found, err := s.primary.Get(ctx, key)
	if err == nil {
		if found {
			_ = s.mirror.Set(ctx, key, v)
		}
		return v, found, nil
	}

	mv, mfound, _ := s.mirror.Get(ctx, key)
	if mfound {
		s.logger.Warnw("Primary read failed, serving mirrored value", "key", key, "error", err)
		return mv, true, nil
	}
	return "", false, err
}

func (s *FallbackStore) Set(ctx context.Context, key, value string) error {
	_ = s.mirror.Set(ctx, key, value)
	return s.primary.Set(ctx, key, value)
}

func (s *FallbackStore) Ping(ctx context.Context) error {
	return s.primary.Ping(ctx)
}

func (s *FallbackStore) Close() error {
	return s.primary.Close()
}

// Info forwards the primary's connection details, if it has any.
func (s *FallbackStore) Info() map[string]interface{} {
	if inspector, ok := s.primary.(ports.StoreInspector); ok {
		return inspector.Info()
	}
	return nil
}
