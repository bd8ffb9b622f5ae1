package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxforecast/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "anon-key", time.Second)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestListInstrumentsSendsFiltersAndKeys(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/trading_instruments", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		assert.Equal(t, "eq.true", r.URL.Query().Get("is_active"))
		assert.Equal(t, "category.asc,name.asc", r.URL.Query().Get("order"))

		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "eurgbp", "symbol": "EURGBP", "name": "EUR/GBP", "pip_value": 12.6, "average_adr": 60, "category": "cross", "is_active": true},
			{"id": "eurusd", "symbol": "EURUSD", "name": "EUR/USD", "pip_value": 10, "average_adr": 75, "category": "major", "is_active": true},
		})
	})

	insts, err := c.ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "eurgbp", insts[0].ID)
	assert.Equal(t, 12.6, insts[0].PipValue)
	assert.True(t, insts[1].Active)
}

func TestGetInstrumentMiss(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.xauusd", r.URL.Query().Get("id"))
		writeJSON(w, http.StatusOK, []any{})
	})

	_, err := c.GetInstrument(context.Background(), "xauusd")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestServerErrorIsReported(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "XX000", "message": "boom"})
	})

	_, err := c.ListInstruments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, err.Error(), "boom")
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "down"})
	})

	ctx := context.Background()
	for i := 0; i < BreakerFailures; i++ {
		_, err := c.ListTools(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrUnavailable)
	}

	_, err := c.ListTools(ctx)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	assert.Equal(t, int32(BreakerFailures), hits.Load())
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, []any{})
	})

	for i := 0; i < BreakerFailures+2; i++ {
		_, err := c.GetInstrument(context.Background(), "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	}
	assert.Equal(t, int32(BreakerFailures+2), hits.Load())
}

func TestSaveCalculation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/user_calculations", r.URL.Path)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var row calculationRow
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &row))
		assert.Equal(t, "u1", row.UserID)
		assert.NotEmpty(t, row.ID)
		assert.Nil(t, row.InstrumentID)
		assert.NotNil(t, row.InputParameters)

		writeJSON(w, http.StatusCreated, []calculationRow{row})
	})

	got, err := c.SaveCalculation(context.Background(), store.Calculation{
		UserID: "u1",
		ToolID: store.ToolRiskGuard,
		Name:   "Risk Guard",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Risk Guard", got.Name)
	assert.Empty(t, got.InstrumentID)
}

func TestSaveCalculationValidatesIDs(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1", "k", time.Second)
	_, err := c.SaveCalculation(context.Background(), store.Calculation{ToolID: "x"})
	assert.Error(t, err)
}

func TestListCalculationsReadsContentRange(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "10-19", r.Header.Get("Range"))
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "id.desc", r.URL.Query().Get("order"))

		w.Header().Set("Content-Range", "10-11/12")
		inst := "eurusd"
		writeJSON(w, http.StatusPartialContent, []calculationRow{
			{ID: "b", UserID: "u1", ToolID: store.ToolPositionSize, InstrumentID: &inst},
			{ID: "a", UserID: "u1", ToolID: store.ToolPositionSize},
		})
	})

	page, err := c.ListCalculations(context.Background(), "u1", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Count)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	require.Len(t, page.Calculations, 2)
	assert.Equal(t, "eurusd", page.Calculations[0].InstrumentID)
}

func TestListCalculationsPastTheEnd(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "*/3")
		writeJSON(w, http.StatusRequestedRangeNotSatisfiable, map[string]string{"message": "range"})
	})

	page, err := c.ListCalculations(context.Background(), "u1", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	assert.Equal(t, 1, page.TotalPages)
	assert.Empty(t, page.Calculations)
}

func TestDeleteCalculationMiss(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.c1", r.URL.Query().Get("id"))
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		writeJSON(w, http.StatusOK, []any{})
	})

	assert.ErrorIs(t, c.DeleteCalculation(context.Background(), "c1", "u1"), store.ErrNotFound)
}

func TestIncrementToolUsage(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/increment_tool_usage", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["tool_id"] == store.ToolPositionSize {
			writeJSON(w, http.StatusOK, 1)
			return
		}
		writeJSON(w, http.StatusOK, 0)
	})

	ctx := context.Background()
	assert.NoError(t, c.IncrementToolUsage(ctx, store.ToolPositionSize))
	assert.ErrorIs(t, c.IncrementToolUsage(ctx, "nope"), store.ErrNotFound)
}

func TestCreateUserDuplicate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var row userRow
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		assert.Equal(t, "a@example.com", row.Email)
		writeJSON(w, http.StatusConflict, map[string]string{"code": "23505", "message": "duplicate key"})
	})

	err := c.CreateUser(context.Background(), store.User{ID: "u1", Email: "A@Example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestUserByEmail(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.a@example.com", r.URL.Query().Get("email"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "u1", "email": "a@example.com", "full_name": "A", "role": "member", "password_hash": "h", "created_at": time.Now().UTC()},
		})
	})

	u, err := c.UserByEmail(context.Background(), "A@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "h", u.PasswordHash)
}

func TestContentRangeTotal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"0-9/37", 37},
		{"*/0", 0},
		{"0-9/*", 0},
		{"", 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, contentRangeTotal(tt.in))
		})
	}
}
