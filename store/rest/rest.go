// Package rest is a store.Store backed by a PostgREST-style remote
// database: each table is exposed at /rest/v1/<table>, filters travel as
// query parameters (id=eq.x) and requests carry an apikey header plus a
// bearer token.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/pkg/id"
	"github.com/rustyeddy/fxforecast/store"
)

const (
	tableInstruments  = "trading_instruments"
	tableTools        = "trading_tools"
	tableCalculations = "user_calculations"
	tableUsers        = "user_profiles"
)

// Breaker settings: the circuit opens after BreakerFailures consecutive
// failures and lets one probe through after BreakerTimeout.
const (
	BreakerFailures = 5
	BreakerTimeout  = 30 * time.Second
)

type Client struct {
	base string
	rest *resty.Client
	cb   *gobreaker.CircuitBreaker
}

var _ store.Store = (*Client)(nil)

// New returns a client for the backend rooted at base. key is sent both
// as the apikey header and as the bearer token.
func New(base, key string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	r.SetHeader("apikey", key).
		SetAuthToken(key).
		SetHeader("Accept", "application/json")

	return &Client{
		base: strings.TrimRight(base, "/"),
		rest: r,
		cb:   newBreaker(base),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= BreakerFailures
		},
		// A caller giving up is not a backend failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("backend", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

var errServerStatus = errors.New("server error status")

// send executes r through the circuit breaker. Transport errors and 5xx
// responses count as failures. While the circuit is open calls fail fast
// with store.ErrUnavailable.
func (c *Client) send(r *resty.Request, method, url string) (*resty.Response, error) {
	out, err := c.cb.Execute(func() (any, error) {
		resp, err := r.Execute(method, url)
		if err == nil && resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, err
	})
	resp, _ := out.(*resty.Response)

	switch {
	case errors.Is(err, errServerStatus):
		// check reports the status and body
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return resp, err
}

func (c *Client) url(table string) string {
	return c.base + "/rest/v1/" + table
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	if resp.IsSuccess() {
		return nil
	}
	e, _ := resp.Error().(*apiError)
	if e != nil && e.Code == "23505" {
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	}
	msg := resp.String()
	if e != nil && e.Message != "" {
		msg = e.Message
	}
	log.Warn().Str("op", op).Int("status", resp.StatusCode()).Msg("backend request failed")
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode(), msg)
}

func (c *Client) req(ctx context.Context) *resty.Request {
	return c.rest.R().SetContext(ctx).SetError(&apiError{})
}

type instrumentRow struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	PipValue   float64 `json:"pip_value"`
	AverageADR float64 `json:"average_adr"`
	Category   string  `json:"category"`
	Active     bool    `json:"is_active"`
}

func (r instrumentRow) instrument() market.Instrument {
	return market.Instrument(r)
}

func (c *Client) ListInstruments(ctx context.Context) ([]market.Instrument, error) {
	var rows []instrumentRow
	req := c.req(ctx).
		SetQueryParams(map[string]string{
			"select":    "*",
			"is_active": "eq.true",
			"order":     "category.asc,name.asc",
		}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodGet, c.url(tableInstruments))
	if err := c.check("list instruments", resp, err); err != nil {
		return nil, err
	}

	out := make([]market.Instrument, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.instrument())
	}
	return out, nil
}

func (c *Client) GetInstrument(ctx context.Context, instID string) (market.Instrument, error) {
	var rows []instrumentRow
	req := c.req(ctx).
		SetQueryParams(map[string]string{"select": "*", "id": "eq." + instID}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodGet, c.url(tableInstruments))
	if err := c.check("get instrument", resp, err); err != nil {
		return market.Instrument{}, err
	}
	if len(rows) == 0 {
		return market.Instrument{}, fmt.Errorf("instrument %q: %w", instID, store.ErrNotFound)
	}
	return rows[0].instrument(), nil
}

func (c *Client) UpsertInstrument(ctx context.Context, inst market.Instrument) error {
	if inst.ID == "" {
		return fmt.Errorf("instrument id is required")
	}
	row := instrumentRow(inst)
	row.Symbol = market.NormalizeSymbol(row.Symbol)

	req := c.req(ctx).
		SetHeader("Prefer", "resolution=merge-duplicates").
		SetQueryParam("on_conflict", "id").
		SetBody([]instrumentRow{row})
	resp, err := c.send(req, resty.MethodPost, c.url(tableInstruments))
	return c.check("upsert instrument "+inst.ID, resp, err)
}

func (c *Client) ListTools(ctx context.Context) ([]store.Tool, error) {
	var tools []store.Tool
	req := c.req(ctx).
		SetQueryParams(map[string]string{"select": "*", "order": "created_at.desc,id.asc"}).
		SetResult(&tools)
	resp, err := c.send(req, resty.MethodGet, c.url(tableTools))
	if err := c.check("list tools", resp, err); err != nil {
		return nil, err
	}
	return tools, nil
}

// IncrementToolUsage calls the increment_tool_usage function so the
// counter is bumped server side in one statement.
func (c *Client) IncrementToolUsage(ctx context.Context, toolID string) error {
	var updated int
	req := c.req(ctx).
		SetBody(map[string]string{"tool_id": toolID}).
		SetResult(&updated)
	resp, err := c.send(req, resty.MethodPost, c.base+"/rest/v1/rpc/increment_tool_usage")
	if err := c.check("increment tool usage", resp, err); err != nil {
		return err
	}
	if updated == 0 {
		return fmt.Errorf("tool %q: %w", toolID, store.ErrNotFound)
	}
	return nil
}

type calculationRow struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	ToolID          string             `json:"tool_id"`
	InstrumentID    *string            `json:"instrument_id"`
	Name            string             `json:"calculation_name"`
	InputParameters map[string]string  `json:"input_parameters"`
	Results         map[string]float64 `json:"results"`
	Notes           string             `json:"notes"`
	CreatedAt       time.Time          `json:"created_at"`
}

func toRow(c store.Calculation) calculationRow {
	r := calculationRow{
		ID:              c.ID,
		UserID:          c.UserID,
		ToolID:          c.ToolID,
		Name:            c.Name,
		InputParameters: c.InputParameters,
		Results:         c.Results,
		Notes:           c.Notes,
		CreatedAt:       c.CreatedAt,
	}
	if r.InputParameters == nil {
		r.InputParameters = map[string]string{}
	}
	if r.Results == nil {
		r.Results = map[string]float64{}
	}
	if c.InstrumentID != "" {
		inst := c.InstrumentID
		r.InstrumentID = &inst
	}
	return r
}

func (r calculationRow) calculation() store.Calculation {
	c := store.Calculation{
		ID:              r.ID,
		UserID:          r.UserID,
		ToolID:          r.ToolID,
		Name:            r.Name,
		InputParameters: r.InputParameters,
		Results:         r.Results,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
	if r.InstrumentID != nil {
		c.InstrumentID = *r.InstrumentID
	}
	return c
}

func (c *Client) SaveCalculation(ctx context.Context, calc store.Calculation) (store.Calculation, error) {
	if calc.UserID == "" {
		return store.Calculation{}, fmt.Errorf("save calculation: user id is required")
	}
	if calc.ToolID == "" {
		return store.Calculation{}, fmt.Errorf("save calculation: tool id is required")
	}
	calc.CreatedAt = time.Now().UTC()
	calc.ID = id.NewAt(calc.CreatedAt)

	var rows []calculationRow
	req := c.req(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(toRow(calc)).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodPost, c.url(tableCalculations))
	if err := c.check("save calculation", resp, err); err != nil {
		return store.Calculation{}, err
	}
	if len(rows) > 0 {
		return rows[0].calculation(), nil
	}
	return calc, nil
}

// ListCalculations asks for an exact count and reads the total from the
// Content-Range header ("0-9/37").
func (c *Client) ListCalculations(ctx context.Context, userID string, page, limit int) (store.Page, error) {
	page, limit, offset := store.PageBounds(page, limit)
	out := store.Page{CurrentPage: page, Calculations: []store.Calculation{}}

	var rows []calculationRow
	req := c.req(ctx).
		SetHeader("Prefer", "count=exact").
		SetHeader("Range-Unit", "items").
		SetHeader("Range", fmt.Sprintf("%d-%d", offset, offset+limit-1)).
		SetQueryParams(map[string]string{
			"select":  "*",
			"user_id": "eq." + userID,
			"order":   "id.desc",
		}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodGet, c.url(tableCalculations))

	// An offset past the end is answered with 416 and no rows.
	if err == nil && resp.StatusCode() == http.StatusRequestedRangeNotSatisfiable {
		out.Count = contentRangeTotal(resp.Header().Get("Content-Range"))
		out.TotalPages = store.TotalPages(out.Count, limit)
		return out, nil
	}
	if err := c.check("list calculations", resp, err); err != nil {
		return out, err
	}

	for _, r := range rows {
		out.Calculations = append(out.Calculations, r.calculation())
	}
	out.Count = contentRangeTotal(resp.Header().Get("Content-Range"))
	if out.Count < len(out.Calculations) {
		out.Count = offset + len(out.Calculations)
	}
	out.TotalPages = store.TotalPages(out.Count, limit)
	return out, nil
}

func contentRangeTotal(h string) int {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0
	}
	return n
}

func (c *Client) UpdateCalculationNotes(ctx context.Context, calcID, userID, notes string) (store.Calculation, error) {
	var rows []calculationRow
	req := c.req(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{"id": "eq." + calcID, "user_id": "eq." + userID}).
		SetBody(map[string]string{"notes": notes}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodPatch, c.url(tableCalculations))
	if err := c.check("update calculation", resp, err); err != nil {
		return store.Calculation{}, err
	}
	if len(rows) == 0 {
		return store.Calculation{}, fmt.Errorf("calculation %q: %w", calcID, store.ErrNotFound)
	}
	return rows[0].calculation(), nil
}

func (c *Client) DeleteCalculation(ctx context.Context, calcID, userID string) error {
	var rows []calculationRow
	req := c.req(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParams(map[string]string{"id": "eq." + calcID, "user_id": "eq." + userID}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodDelete, c.url(tableCalculations))
	if err := c.check("delete calculation", resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("calculation %q: %w", calcID, store.ErrNotFound)
	}
	return nil
}

type userRow struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Client) CreateUser(ctx context.Context, u store.User) error {
	u.Email = strings.ToLower(u.Email)
	req := c.req(ctx).
		SetBody(userRow(u))
	resp, err := c.send(req, resty.MethodPost, c.url(tableUsers))
	return c.check("create user "+u.Email, resp, err)
}

func (c *Client) userBy(ctx context.Context, col, val string) (store.User, error) {
	var rows []userRow
	req := c.req(ctx).
		SetQueryParams(map[string]string{"select": "*", col: "eq." + val}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodGet, c.url(tableUsers))
	if err := c.check("get user", resp, err); err != nil {
		return store.User{}, err
	}
	if len(rows) == 0 {
		return store.User{}, fmt.Errorf("user %s: %w", val, store.ErrNotFound)
	}
	return store.User(rows[0]), nil
}

func (c *Client) UserByEmail(ctx context.Context, email string) (store.User, error) {
	return c.userBy(ctx, "email", strings.ToLower(email))
}

func (c *Client) UserByID(ctx context.Context, userID string) (store.User, error) {
	return c.userBy(ctx, "id", userID)
}

func (c *Client) UpdateUser(ctx context.Context, u store.User) error {
	var rows []userRow
	req := c.req(ctx).
		SetHeader("Prefer", "return=representation").
		SetQueryParam("id", "eq."+u.ID).
		SetBody(map[string]string{"full_name": u.FullName, "role": u.Role}).
		SetResult(&rows)
	resp, err := c.send(req, resty.MethodPatch, c.url(tableUsers))
	if err := c.check("update user", resp, err); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("user %s: %w", u.ID, store.ErrNotFound)
	}
	return nil
}

// Close is a no-op.
func (c *Client) Close() error { return nil }
