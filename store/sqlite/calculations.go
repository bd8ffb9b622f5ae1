package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/fxforecast/pkg/id"
	"github.com/rustyeddy/fxforecast/store"
)

const calculationColumns = `id, user_id, tool_id, instrument_id, calculation_name, input_parameters, results, notes, created_at`

func scanCalculation(row interface{ Scan(...any) error }) (store.Calculation, error) {
	var (
		c            store.Calculation
		instrumentID sql.NullString
		inputs       string
		results      string
	)
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.ToolID,
		&instrumentID,
		&c.Name,
		&inputs,
		&results,
		&c.Notes,
		&c.CreatedAt,
	)
	if err != nil {
		return store.Calculation{}, err
	}
	c.InstrumentID = instrumentID.String
	if err := json.Unmarshal([]byte(inputs), &c.InputParameters); err != nil {
		return store.Calculation{}, fmt.Errorf("decode input_parameters of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(results), &c.Results); err != nil {
		return store.Calculation{}, fmt.Errorf("decode results of %s: %w", c.ID, err)
	}
	return c, nil
}

// SaveCalculation inserts c with a fresh ULID and creation time.
func (s *SQLite) SaveCalculation(ctx context.Context, c store.Calculation) (store.Calculation, error) {
	if c.UserID == "" {
		return store.Calculation{}, fmt.Errorf("save calculation: user id is required")
	}
	if c.ToolID == "" {
		return store.Calculation{}, fmt.Errorf("save calculation: tool id is required")
	}

	c.CreatedAt = time.Now().UTC()
	c.ID = id.NewAt(c.CreatedAt)

	inputs, err := json.Marshal(orEmpty(c.InputParameters))
	if err != nil {
		return store.Calculation{}, fmt.Errorf("encode input_parameters: %w", err)
	}
	results, err := json.Marshal(orEmptyF(c.Results))
	if err != nil {
		return store.Calculation{}, fmt.Errorf("encode results: %w", err)
	}

	var instrumentID sql.NullString
	if c.InstrumentID != "" {
		instrumentID = sql.NullString{String: c.InstrumentID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_calculations (`+calculationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.ToolID, instrumentID, c.Name,
		string(inputs), string(results), c.Notes, c.CreatedAt,
	)
	if err != nil {
		return store.Calculation{}, fmt.Errorf("save calculation: %w", err)
	}
	return c, nil
}

func (s *SQLite) getCalculation(ctx context.Context, calcID, userID string) (store.Calculation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+calculationColumns+`
		FROM user_calculations
		WHERE id = ? AND user_id = ?`, calcID, userID)

	c, err := scanCalculation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Calculation{}, fmt.Errorf("calculation %q: %w", calcID, store.ErrNotFound)
		}
		return store.Calculation{}, err
	}
	return c, nil
}

// ListCalculations returns one page of userID's calculations, newest first.
func (s *SQLite) ListCalculations(ctx context.Context, userID string, page, limit int) (store.Page, error) {
	page, limit, offset := store.PageBounds(page, limit)
	out := store.Page{CurrentPage: page, Calculations: []store.Calculation{}}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_calculations WHERE user_id = ?`, userID).Scan(&out.Count); err != nil {
		return out, fmt.Errorf("count calculations: %w", err)
	}
	out.TotalPages = store.TotalPages(out.Count, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+calculationColumns+`
		FROM user_calculations
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return out, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return out, err
		}
		out.Calculations = append(out.Calculations, c)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *SQLite) UpdateCalculationNotes(ctx context.Context, calcID, userID, notes string) (store.Calculation, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_calculations SET notes = ? WHERE id = ? AND user_id = ?`,
		notes, calcID, userID)
	if err != nil {
		return store.Calculation{}, fmt.Errorf("update calculation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.Calculation{}, fmt.Errorf("calculation %q: %w", calcID, store.ErrNotFound)
	}
	return s.getCalculation(ctx, calcID, userID)
}

func (s *SQLite) DeleteCalculation(ctx context.Context, calcID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM user_calculations WHERE id = ? AND user_id = ?`, calcID, userID)
	if err != nil {
		return fmt.Errorf("delete calculation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("calculation %q: %w", calcID, store.ErrNotFound)
	}
	return nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyF(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
