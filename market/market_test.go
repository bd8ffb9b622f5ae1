package market

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pair string
		want float64
	}{
		{"EURUSD", 0.0001},
		{"GBPUSD", 0.0001},
		{"USDJPY", 0.01},
		{"EURJPY", 0.01},
		{"gbpjpy", 0.01},
		{"EUR/GBP", 0.0001},
		{"", 0.0001},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.pair, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, PipSize(tt.pair), 1e-12)
		})
	}
}

func TestPipConversions(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 20.0, PriceToPips("EURUSD", 0.0020), 1e-9)
	assert.InDelta(t, 50.0, PriceToPips("USDJPY", 0.50), 1e-9)
	assert.InDelta(t, 0.30, PipsToPrice("USDJPY", 30), 1e-12)
}

func TestPipValueOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultPipValue, PipValueOf(nil))
	assert.Equal(t, DefaultPipValue, PipValueOf(&Instrument{PipValue: 0}))
	assert.Equal(t, DefaultPipValue, PipValueOf(&Instrument{PipValue: -3}))
	assert.Equal(t, 6.7, PipValueOf(&Instrument{PipValue: 6.7}))
}

func TestFindInstrument(t *testing.T) {
	t.Parallel()

	inst, ok := FindInstrument(Instruments, "usdjpy")
	require.True(t, ok)
	assert.Equal(t, "USDJPY", inst.Symbol)

	_, ok = FindInstrument(Instruments, "")
	assert.False(t, ok)

	_, ok = FindInstrument(Instruments, "xauusd")
	assert.False(t, ok)

	_, ok = FindInstrument(nil, "eurusd")
	assert.False(t, ok)
}

func TestAverageADR(t *testing.T) {
	t.Parallel()

	adr, ok := AverageADR("GBP/JPY")
	require.True(t, ok)
	assert.Equal(t, 130.0, adr)

	_, ok = AverageADR("XAUUSD")
	assert.False(t, ok)
}

func TestNormalizeSymbol(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "EURUSD", NormalizeSymbol("EUR/USD"))
	assert.Equal(t, "EURUSD", NormalizeSymbol(" eur_usd "))
	assert.Equal(t, "USDJPY", NormalizeSymbol("usd-jpy"))
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		valid bool
		want  float64
	}{
		{"", false, 0},
		{"   ", false, 0},
		{"abc", false, 0},
		{"NaN", false, 0},
		{"Inf", false, 0},
		{"-inf", false, 0},
		{"0", true, 0},
		{" 100000 ", true, 100000},
		{"-1.5", true, -1.5},
		{"0.5", true, 0.5},
	}

	for _, tt := range tests {
		n := ParseNumber(tt.in)
		assert.Equal(t, tt.valid, n.Valid, "input %q", tt.in)
		if tt.valid {
			assert.InDelta(t, tt.want, n.Value, 1e-12, "input %q", tt.in)
		}
	}
}

func TestNumberHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7.0, Number{}.Or(7))
	assert.Equal(t, 3.0, Num(3).Or(7))
	assert.Equal(t, 2, Num(2.9).Int())
	assert.Equal(t, 0, Number{}.Int())
	assert.False(t, Num(math.NaN()).Valid)
	assert.Equal(t, "", Number{}.String())
	assert.Equal(t, "1.085", Num(1.085).String())
}

func TestNumberJSON(t *testing.T) {
	t.Parallel()

	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
		E Number `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 1.5, "b": "2.25", "c": "", "d": null, "e": "x"}`), &v)
	require.NoError(t, err)

	assert.Equal(t, Num(1.5), v.A)
	assert.Equal(t, Num(2.25), v.B)
	assert.False(t, v.C.Valid)
	assert.False(t, v.D.Valid)
	assert.False(t, v.E.Valid)

	out, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: Num(0.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 0.5, "b": null}`, string(out))
}

func TestNumberIntCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want int
	}{
		{"whole", "2", 2},
		{"truncates", "1.9", 1},
		{"negative", "-3", 0},
		{"negative fraction", "-0.5", 0},
		{"huge", "1e30", math.MaxInt},
		{"max float", "1.7976931348623157e308", math.MaxInt},
		{"blank", "", 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseNumber(tt.in).Int())
		})
	}
}
