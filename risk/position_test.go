package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/fxforecast/market"
)

func TestComputePositionSize_Formula(t *testing.T) {
	t.Parallel()

	in := PositionSizeInput{
		AccountBalance: 100_000,
		RiskPercentage: 0.5,
		StopLossPips:   20,
	}
	inst := &market.Instrument{ID: "eurusd", Name: "EUR/USD", PipValue: 10}

	got := ComputePositionSize(in, inst)

	assert.InDelta(t, 500.0, got.RiskAmount, 1e-9)
	assert.InDelta(t, 2.5, got.LotSize, 1e-9)
	assert.Equal(t, 10.0, got.PipValue)
	assert.Equal(t, 20.0, got.StopLossPips)
	assert.Equal(t, "EUR/USD", got.InstrumentName)
	assert.True(t, got.OK())
}

func TestComputePositionSize_Idempotent(t *testing.T) {
	t.Parallel()

	in := PositionSizeInput{AccountBalance: 25_000, RiskPercentage: 1, StopLossPips: 35}
	inst := &market.Instrument{Name: "USD/JPY", PipValue: 6.7}

	a := ComputePositionSize(in, inst)
	b := ComputePositionSize(in, inst)
	assert.Equal(t, a, b)
}

func TestComputePositionSize_DefaultPipValue(t *testing.T) {
	t.Parallel()

	in := PositionSizeInput{AccountBalance: 10_000, RiskPercentage: 2, StopLossPips: 25}

	tests := []struct {
		name string
		inst *market.Instrument
	}{
		{"no instrument", nil},
		{"zero pip value", &market.Instrument{Name: "EUR/USD"}},
		{"negative pip value", &market.Instrument{Name: "EUR/USD", PipValue: -1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputePositionSize(in, tt.inst)
			assert.Equal(t, market.DefaultPipValue, got.PipValue)
			assert.InDelta(t, 200.0, got.RiskAmount, 1e-9)
			assert.InDelta(t, 0.8, got.LotSize, 1e-9)
		})
	}

	assert.Equal(t, "Unknown", ComputePositionSize(in, nil).InstrumentName)
}

func TestComputePositionSize_Degenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       PositionSizeInput
		wantRisk float64
	}{
		{"zero stop", PositionSizeInput{AccountBalance: 100_000, RiskPercentage: 0.5, StopLossPips: 0}, 500},
		{"negative stop", PositionSizeInput{AccountBalance: 100_000, RiskPercentage: 0.5, StopLossPips: -20}, 500},
		{"zero balance", PositionSizeInput{AccountBalance: 0, RiskPercentage: 0.5, StopLossPips: 20}, 0},
		{"negative balance", PositionSizeInput{AccountBalance: -5, RiskPercentage: 0.5, StopLossPips: 20}, 0},
		{"zero risk", PositionSizeInput{AccountBalance: 100_000, RiskPercentage: 0, StopLossPips: 20}, 0},
		{"risk over 100", PositionSizeInput{AccountBalance: 100_000, RiskPercentage: 150, StopLossPips: 20}, 0},
		{"all zero", PositionSizeInput{}, 0},
		{"lot size overflows", PositionSizeInput{AccountBalance: 1e308, RiskPercentage: 100, StopLossPips: 1e-300}, 1e308},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputePositionSize(tt.in, nil)
			assert.Equal(t, 0.0, got.LotSize)
			assert.Equal(t, 0.0, Units(got.LotSize))
			assert.False(t, got.OK())
			assert.InDelta(t, tt.wantRisk, got.RiskAmount, 1e-9)
		})
	}
}

func TestUnits(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 250_000.0, Units(2.5), 1e-6)
}
