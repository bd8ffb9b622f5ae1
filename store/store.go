// Package store is the data-access layer for the trading tools: the
// instrument reference table, tool metadata, saved calculations and user
// profiles.
//
// Two backends implement Store: sqlite (a local file) and rest (a
// PostgREST-style remote backend).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/fxforecast/market"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")

	// ErrUnavailable means the backend is failing and calls are being
	// rejected without being sent.
	ErrUnavailable = errors.New("store unavailable")
)

// Tool ids, shared with the dashboard.
const (
	ToolPositionSize = "position-size"
	ToolADRExit      = "adr-exit"
	ToolRiskGuard    = "risk-guard"
)

type Tool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ToolType    string    `json:"tool_type"`
	Description string    `json:"description"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// DefaultTools seed the trading_tools table.
var DefaultTools = []Tool{
	{ID: ToolPositionSize, Name: "Position Size Calculator", ToolType: "calculator",
		Description: "Calculate optimal lot sizes based on account equity and risk tolerance."},
	{ID: ToolADRExit, Name: "ADR Exit Helper", ToolType: "calculator",
		Description: "Take profit levels at 30% and 50% of the Average Daily Range."},
	{ID: ToolRiskGuard, Name: "Risk Guard Monitor", ToolType: "monitor",
		Description: "Daily and weekly drawdown, trade count and open risk limits."},
}

type Calculation struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	ToolID          string             `json:"tool_id"`
	InstrumentID    string             `json:"instrument_id,omitempty"`
	Name            string             `json:"calculation_name"`
	InputParameters map[string]string  `json:"input_parameters"`
	Results         map[string]float64 `json:"results"`
	Notes           string             `json:"notes"`
	CreatedAt       time.Time          `json:"created_at"`
}

type Page struct {
	Calculations []Calculation `json:"data"`
	Count        int           `json:"count"`
	TotalPages   int           `json:"total_pages"`
	CurrentPage  int           `json:"current_page"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// InstrumentLister is the read-only instrument lookup the calculators
// consume. It returns active instruments ordered by category, then name.
type InstrumentLister interface {
	ListInstruments(ctx context.Context) ([]market.Instrument, error)
}

// CalculationSaver persists a calculator result. The returned Calculation
// carries the assigned ID and CreatedAt.
type CalculationSaver interface {
	SaveCalculation(ctx context.Context, c Calculation) (Calculation, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, u User) error
}

type InstrumentUpserter interface {
	UpsertInstrument(ctx context.Context, inst market.Instrument) error
}

// SeedInstruments upserts every instrument in list and returns how many
// were written before the first failure.
func SeedInstruments(ctx context.Context, s InstrumentUpserter, list []market.Instrument) (int, error) {
	for i, inst := range list {
		if err := s.UpsertInstrument(ctx, inst); err != nil {
			return i, fmt.Errorf("seed instrument %s: %w", inst.ID, err)
		}
	}
	return len(list), nil
}

type Store interface {
	InstrumentLister
	CalculationSaver
	UserStore

	InstrumentUpserter

	GetInstrument(ctx context.Context, id string) (market.Instrument, error)

	ListTools(ctx context.Context) ([]Tool, error)
	IncrementToolUsage(ctx context.Context, toolID string) error

	ListCalculations(ctx context.Context, userID string, page, limit int) (Page, error)
	UpdateCalculationNotes(ctx context.Context, id, userID, notes string) (Calculation, error)
	DeleteCalculation(ctx context.Context, id, userID string) error

	Close() error
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// PageBounds normalizes a 1-based page and limit and returns the row
// offset.
func PageBounds(page, limit int) (p, l, offset int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit, (page - 1) * limit
}

// TotalPages is ceil(count/limit).
func TotalPages(count, limit int) int {
	if count <= 0 || limit <= 0 {
		return 0
	}
	return (count + limit - 1) / limit
}
