package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/store"
)

// SQLite is a store.Store backed by a local SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ store.Store = (*SQLite)(nil)

// New opens (creating if needed) the database at path, applies the schema
// and seeds the tools table and, when empty, the instrument catalogue.
func New(path string) (*SQLite, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.seed(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) seed(ctx context.Context) error {
	now := time.Now().UTC()
	for _, t := range store.DefaultTools {
		_, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO trading_tools (id, name, tool_type, description, usage_count, created_at)
			VALUES (?, ?, ?, ?, 0, ?)`,
			t.ID, t.Name, t.ToolType, t.Description, now)
		if err != nil {
			return fmt.Errorf("seed tool %s: %w", t.ID, err)
		}
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trading_instruments`).Scan(&n); err != nil {
		return fmt.Errorf("count instruments: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := store.SeedInstruments(ctx, s, market.Instruments); err != nil {
		return fmt.Errorf("seed instruments: %w", err)
	}
	log.Debug().Int("instruments", len(market.Instruments)).Msg("seeded instrument catalogue")
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
