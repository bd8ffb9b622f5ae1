// market/instruments.go
package market

import "strings"

// DefaultPipValue is the pip value (account currency per pip, one
// standard lot) used when no instrument is selected or the selected
// instrument carries no pip value.
const DefaultPipValue = 10.0

type Instrument struct {
	ID         string  `json:"id" yaml:"id"`
	Symbol     string  `json:"symbol" yaml:"symbol"`
	Name       string  `json:"name" yaml:"name"`
	PipValue   float64 `json:"pip_value" yaml:"pip_value"`
	AverageADR float64 `json:"average_adr" yaml:"average_adr"` // ADR(14) in pips
	Category   string  `json:"category" yaml:"category"`
	Active     bool    `json:"is_active" yaml:"active"`
}

// PipValueOf resolves the pip value for inst, falling back to
// DefaultPipValue for a nil instrument or a non-positive pip value.
func PipValueOf(inst *Instrument) float64 {
	if inst == nil || inst.PipValue <= 0 {
		return DefaultPipValue
	}
	return inst.PipValue
}

// Instruments is the built-in catalogue offered by the tools. Pip values
// are for a USD account trading one standard lot.
var Instruments = []Instrument{
	{ID: "eurusd", Symbol: "EURUSD", Name: "EUR/USD", PipValue: 10, AverageADR: 75, Category: "major", Active: true},
	{ID: "gbpusd", Symbol: "GBPUSD", Name: "GBP/USD", PipValue: 10, AverageADR: 95, Category: "major", Active: true},
	{ID: "usdjpy", Symbol: "USDJPY", Name: "USD/JPY", PipValue: 6.7, AverageADR: 85, Category: "major", Active: true},
	{ID: "usdchf", Symbol: "USDCHF", Name: "USD/CHF", PipValue: 11.2, AverageADR: 70, Category: "major", Active: true},
	{ID: "audusd", Symbol: "AUDUSD", Name: "AUD/USD", PipValue: 10, AverageADR: 80, Category: "major", Active: true},
	{ID: "usdcad", Symbol: "USDCAD", Name: "USD/CAD", PipValue: 7.3, AverageADR: 75, Category: "major", Active: true},
	{ID: "nzdusd", Symbol: "NZDUSD", Name: "NZD/USD", PipValue: 10, AverageADR: 85, Category: "major", Active: true},
	{ID: "eurjpy", Symbol: "EURJPY", Name: "EUR/JPY", PipValue: 6.7, AverageADR: 110, Category: "cross", Active: true},
	{ID: "gbpjpy", Symbol: "GBPJPY", Name: "GBP/JPY", PipValue: 6.7, AverageADR: 130, Category: "cross", Active: true},
	{ID: "eurgbp", Symbol: "EURGBP", Name: "EUR/GBP", PipValue: 12.6, AverageADR: 60, Category: "cross", Active: true},
}

// FindInstrument looks up id in list. An empty id or a miss returns false.
func FindInstrument(list []Instrument, id string) (*Instrument, bool) {
	if id == "" {
		return nil, false
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}

// FindSymbol looks up an instrument by (normalized) symbol.
func FindSymbol(list []Instrument, symbol string) (*Instrument, bool) {
	sym := NormalizeSymbol(symbol)
	if sym == "" {
		return nil, false
	}
	for i := range list {
		if NormalizeSymbol(list[i].Symbol) == sym {
			return &list[i], true
		}
	}
	return nil, false
}

// AverageADR returns the catalogue ADR(14) for symbol, used to autofill
// the ADR helper.
func AverageADR(symbol string) (float64, bool) {
	inst, ok := FindSymbol(Instruments, symbol)
	if !ok || inst.AverageADR <= 0 {
		return 0, false
	}
	return inst.AverageADR, true
}

// NormalizeSymbol maps "EUR/USD", "EUR_USD" and "eurusd" to "EURUSD".
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("/", "", "_", "", "-", "", " ", "").Replace(s)
}
