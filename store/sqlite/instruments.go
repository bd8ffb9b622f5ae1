package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/store"
)

const instrumentColumns = `id, symbol, name, pip_value, average_adr, category, is_active`

func scanInstrument(row interface{ Scan(...any) error }) (market.Instrument, error) {
	var inst market.Instrument
	err := row.Scan(
		&inst.ID,
		&inst.Symbol,
		&inst.Name,
		&inst.PipValue,
		&inst.AverageADR,
		&inst.Category,
		&inst.Active,
	)
	return inst, err
}

// ListInstruments returns active instruments ordered by category, then name.
func (s *SQLite) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+instrumentColumns+`
		FROM trading_instruments
		WHERE is_active = 1
		ORDER BY category ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []market.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) GetInstrument(ctx context.Context, id string) (market.Instrument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+instrumentColumns+`
		FROM trading_instruments
		WHERE id = ?`, id)

	inst, err := scanInstrument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Instrument{}, fmt.Errorf("instrument %q: %w", id, store.ErrNotFound)
		}
		return market.Instrument{}, err
	}
	return inst, nil
}

func (s *SQLite) UpsertInstrument(ctx context.Context, inst market.Instrument) error {
	if inst.ID == "" {
		return fmt.Errorf("instrument id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trading_instruments (`+instrumentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			symbol = excluded.symbol,
			name = excluded.name,
			pip_value = excluded.pip_value,
			average_adr = excluded.average_adr,
			category = excluded.category,
			is_active = excluded.is_active`,
		inst.ID, market.NormalizeSymbol(inst.Symbol), inst.Name, inst.PipValue,
		inst.AverageADR, inst.Category, inst.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert instrument %s: %w", inst.ID, err)
	}
	return nil
}

func (s *SQLite) ListTools(ctx context.Context) ([]store.Tool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tool_type, description, usage_count, created_at
		FROM trading_tools
		ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	var out []store.Tool
	for rows.Next() {
		var t store.Tool
		var created time.Time
		if err := rows.Scan(&t.ID, &t.Name, &t.ToolType, &t.Description, &t.UsageCount, &created); err != nil {
			return nil, err
		}
		t.CreatedAt = created
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLite) IncrementToolUsage(ctx context.Context, toolID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trading_tools SET usage_count = usage_count + 1 WHERE id = ?`, toolID)
	if err != nil {
		return fmt.Errorf("increment tool usage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tool %q: %w", toolID, store.ErrNotFound)
	}
	return nil
}
