package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// DefaultThemeKey is the backend key holding the theme preference.
const DefaultThemeKey = "theme"

// ThemeService handles the persisted dark/light preference
type ThemeService struct {
	mu      sync.Mutex
	kv      ports.KeyValueStore
	key     string
	current *entities.Theme
	logger  *logger.Logger
}

var _ ports.ThemeService = (*ThemeService)(nil)

// NewThemeService creates a new theme service
func NewThemeService(kv ports.KeyValueStore, key string, appLogger *logger.Logger) *ThemeService {
	if key == "" {
		key = DefaultThemeKey
	}
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	return &ThemeService{
		kv:     kv,
		key:    key,
		logger: appLogger.WithComponent("theme_service"),
	}
}

// Get returns the current theme, reading the backend on first use.
// Absent, unknown or unreadable values fall back to the default theme.
func (s *ThemeService) Get(ctx context.Context) entities.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(ctx)
}

// Set stores theme. A failed write keeps the new theme for this process and
// returns a persistence warning.
func (s *ThemeService) Set(ctx context.Context, theme entities.Theme) error {
	parsed, ok := entities.ParseTheme(string(theme))
	if !ok {
		return fmt.Errorf("%w: unknown theme %q", entities.ErrInvalidInput, theme)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setLocked(ctx, parsed)
}

// Toggle switches between dark and light.
func (s *ThemeService) Toggle(ctx context.Context) (entities.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.getLocked(ctx).Toggle()
	return next, s.setLocked(ctx, next)
}

func (s *ThemeService) getLocked(ctx context.Context) entities.Theme {
	if s.current != nil {
		return *s.current
	}

	theme := entities.DefaultTheme
	raw, found, err := s.kv.Get(ctx, s.key)
	switch {
	case err != nil:
		s.logger.LogStorageFailure("read", s.key, err)
		// leave current unset so the next call retries the backend
		return theme
	case found:
		parsed, ok := entities.ParseTheme(raw)
		if !ok {
			s.logger.Warnw("Ignoring unknown stored theme", "value", raw)
		}
		theme = parsed
	}

	s.current = &theme
	return theme
}

func (s *ThemeService) setLocked(ctx context.Context, theme entities.Theme) error {
	s.current = &theme

	if err := s.kv.Set(ctx, s.key, string(theme)); err != nil {
		s.logger.LogStorageFailure("write", s.key, err)
		return entities.NewWriteError(s.key, err)
	}

	s.logger.Infow("Theme changed", "theme", theme)
	return nil
}
