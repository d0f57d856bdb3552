package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/futuretasks/core/internal/infrastructure/config"
	"github.com/futuretasks/core/internal/infrastructure/database"
	"github.com/futuretasks/core/internal/ports"
)

// SQLStore keeps entries in the kv_entries table (postgres or mysql).
type SQLStore struct {
	db     *database.DB
	upsert string
}

var (
	_ ports.KeyValueStore  = (*SQLStore)(nil)
	_ ports.StoreInspector = (*SQLStore)(nil)
)

// NewSQLStore creates a store over an open connection; the connection's driver
// selects the upsert dialect.
func NewSQLStore(db *database.DB) *SQLStore {
	upsert := `
		INSERT INTO kv_entries (entry_key, entry_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (entry_key) DO UPDATE
		SET entry_value = EXCLUDED.entry_value, updated_at = CURRENT_TIMESTAMP`
	if db.Driver() == config.DriverMySQL {
		upsert = `
		INSERT INTO kv_entries (entry_key, entry_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON DUPLICATE KEY UPDATE entry_value = VALUES(entry_value), updated_at = CURRENT_TIMESTAMP`
	}
	return &SQLStore{db: db, upsert: db.DB.Rebind(upsert)}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := s.db.DB.Rebind(`SELECT entry_value FROM kv_entries WHERE entry_key = ?`)

	var value string
	err := s.db.DB.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get entry %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.DB.ExecContext(ctx, s.upsert, key, value); err != nil {
		return fmt.Errorf("set entry %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Info reports the connection pool statistics
func (s *SQLStore) Info() map[string]interface{} {
	return s.db.GetConnectionInfo()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
