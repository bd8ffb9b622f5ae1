package risk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/fxforecast/market"
)

func titles(g GuardStatus) []string {
	out := make([]string, 0, len(g.Explanations))
	for _, e := range g.Explanations {
		out = append(out, e.Title)
	}
	return out
}

func TestEvaluateGuard_AllClear(t *testing.T) {
	t.Parallel()

	g := EvaluateGuard(GuardInput{})

	assert.Equal(t, Safe, g.Overall)
	assert.Equal(t, Safe, g.Daily)
	assert.Equal(t, Safe, g.Weekly)
	assert.Equal(t, Safe, g.Trades)
	assert.Equal(t, Safe, g.Risk)
	require.Len(t, g.Explanations, 1)
	assert.Equal(t, "All Systems Green", g.Explanations[0].Title)
	assert.Equal(t, SeveritySuccess, g.Explanations[0].Severity)
	assert.True(t, g.CanTrade())
}

func TestEvaluateGuard_DailyLockIsIndependent(t *testing.T) {
	t.Parallel()

	g := EvaluateGuard(GuardInput{DailyPL: -1.5})

	assert.Equal(t, Locked, g.Daily)
	assert.Equal(t, Locked, g.Overall)
	assert.Equal(t, Safe, g.Weekly)
	assert.Equal(t, Safe, g.Trades)
	assert.Equal(t, Safe, g.Risk)
	assert.False(t, g.CanTrade())
	require.Len(t, g.Explanations, 1)
	assert.Equal(t, AxisDaily, g.Explanations[0].Axis)
	assert.Equal(t, "You've hit the -1% daily loss limit. No more trades today.", g.Explanations[0].Message)
}

func TestEvaluateGuard_AllAxesTriggered(t *testing.T) {
	t.Parallel()

	g := EvaluateGuard(GuardInput{
		DailyPL:          -1.5,
		WeeklyPL:         -5,
		TradesTakenToday: 3,
		OpenRiskPercent:  1.0,
	})

	assert.Equal(t, Locked, g.Overall)
	require.Len(t, g.Explanations, 4)

	wantAxes := []Axis{AxisDaily, AxisWeekly, AxisTrades, AxisRisk}
	wantSev := []Severity{SeverityError, SeverityError, SeverityError, SeverityWarning}
	for i, e := range g.Explanations {
		assert.Equal(t, wantAxes[i], e.Axis, "explanation %d", i)
		assert.Equal(t, wantSev[i], e.Severity, "explanation %d", i)
	}
	assert.Equal(t, []string{
		"Daily Loss Limit Reached",
		"Weekly Loss Limit Reached",
		"Daily Trade Limit Reached",
		"High Risk Per Trade",
	}, titles(g))
	assert.Equal(t, "You've taken 3 trades today. Maximum is 2.", g.Explanations[2].Message)
	assert.Equal(t, "Current open risk is 1%. Recommended maximum is 0.5%.", g.Explanations[3].Message)
}

func TestEvaluateGuard_Tiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   GuardInput
		axis func(GuardStatus) Status
		want Status
	}{
		{"daily exactly at limit", GuardInput{DailyPL: -1.0}, func(g GuardStatus) Status { return g.Daily }, Locked},
		{"daily warning", GuardInput{DailyPL: -0.5}, func(g GuardStatus) Status { return g.Daily }, Warning},
		{"daily small loss", GuardInput{DailyPL: -0.4}, func(g GuardStatus) Status { return g.Daily }, Safe},
		{"weekly exactly at limit", GuardInput{WeeklyPL: -4.0}, func(g GuardStatus) Status { return g.Weekly }, Locked},
		{"weekly warning", GuardInput{WeeklyPL: -2.0}, func(g GuardStatus) Status { return g.Weekly }, Warning},
		{"weekly small loss", GuardInput{WeeklyPL: -1.9}, func(g GuardStatus) Status { return g.Weekly }, Safe},
		{"two trades", GuardInput{TradesTakenToday: 2}, func(g GuardStatus) Status { return g.Trades }, Locked},
		{"one trade", GuardInput{TradesTakenToday: 1}, func(g GuardStatus) Status { return g.Trades }, Warning},
		{"huge trade count", GuardInput{TradesTakenToday: market.ParseNumber("1e30").Int()}, func(g GuardStatus) Status { return g.Trades }, Locked},
		{"open risk at max", GuardInput{OpenRiskPercent: 0.5}, func(g GuardStatus) Status { return g.Risk }, Safe},
		{"open risk huge never locks", GuardInput{OpenRiskPercent: 25}, func(g GuardStatus) Status { return g.Risk }, Warning},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := EvaluateGuard(tt.in)
			assert.Equal(t, tt.want, tt.axis(g))
			assert.Equal(t, tt.want, g.Overall)
		})
	}
}

func TestEvaluateGuard_WarningMessages(t *testing.T) {
	t.Parallel()

	g := EvaluateGuard(GuardInput{DailyPL: -0.7, WeeklyPL: -2.5, TradesTakenToday: 1})

	assert.Equal(t, Warning, g.Overall)
	require.Len(t, g.Explanations, 3)
	assert.Equal(t, "You're at -0.7% daily loss. Approach -1% limit carefully.", g.Explanations[0].Message)
	assert.Equal(t, "You're at -2.5% weekly loss. Approach -4% limit carefully.", g.Explanations[1].Message)
	assert.Equal(t, "You've taken 1 trade today. Only 1 more allowed.", g.Explanations[2].Message)
}

func TestEvaluateGuard_PositiveDay(t *testing.T) {
	t.Parallel()

	g := EvaluateGuard(GuardInput{DailyPL: 0.8})

	assert.Equal(t, Safe, g.Overall)
	require.Len(t, g.Explanations, 1)
	assert.Equal(t, "Daily Performance", g.Explanations[0].Title)
	assert.Equal(t, SeveritySuccess, g.Explanations[0].Severity)
	assert.Equal(t, "Positive day with +0.8% gain. Stay disciplined.", g.Explanations[0].Message)
}

func TestEvaluateGuard_Deterministic(t *testing.T) {
	t.Parallel()

	in := GuardInput{DailyPL: -0.6, WeeklyPL: -4.2, TradesTakenToday: 1, OpenRiskPercent: 0.7}
	assert.Equal(t, EvaluateGuard(in), EvaluateGuard(in))
}

func TestResetCounters(t *testing.T) {
	t.Parallel()

	in := GuardInput{DailyPL: -0.8, WeeklyPL: -3.1, TradesTakenToday: 2, OpenRiskPercent: 0.9}
	got := ResetCounters(in)

	assert.Equal(t, 0, got.TradesTakenToday)
	assert.Equal(t, 0.0, got.OpenRiskPercent)
	assert.Equal(t, -0.8, got.DailyPL)
	assert.Equal(t, -3.1, got.WeeklyPL)

	// the original input is untouched
	assert.Equal(t, 2, in.TradesTakenToday)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SAFE", Safe.String())
	assert.Equal(t, "WARNING", Warning.String())
	assert.Equal(t, "LOCKED", Locked.String())
	assert.Equal(t, Locked, Max(Warning, Locked))
	assert.Equal(t, Warning, Max(Warning, Safe))

	b, err := json.Marshal(EvaluateGuard(GuardInput{TradesTakenToday: 1}))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"overall":"WARNING"`)
	assert.Contains(t, string(b), `"type":"warning"`)
}
