package risk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/fxforecast/market"
)

// ADR target fractions.
const (
	ADRFraction30 = 0.30
	ADRFraction50 = 0.50
)

type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

// ParseDirection accepts long/buy and short/sell, case insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want long|short)", s)
	}
}

func (d Direction) Valid() bool { return d == Long || d == Short }

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() float64 { return float64(d) }

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

type ADRExitInput struct {
	CurrencyPair string    `json:"currency_pair"`
	ADRPips      float64   `json:"adr_value"`
	EntryPrice   float64   `json:"entry_price"`
	Direction    Direction `json:"direction"`
}

func (in ADRExitInput) ready() bool {
	return in.ADRPips > 0 && in.EntryPrice > 0 && in.Direction.Valid()
}

type ADRTargets struct {
	TP30 float64 `json:"tp30"`
	TP50 float64 `json:"tp50"`
}

type ADRProgress struct {
	Pips       float64 `json:"progress_pips"`
	Percentage float64 `json:"progress_percentage"` // 0..100
}

// Status labels progress against the 30% and 50% targets.
func (p ADRProgress) Status() string {
	switch {
	case p.Percentage >= 50:
		return "Target Reached"
	case p.Percentage >= 30:
		return "Partial Target"
	default:
		return "In Progress"
	}
}

// ADRTarget returns the price fraction of the ADR away from entry in the
// trade direction.
func ADRTarget(in ADRExitInput, fraction float64) float64 {
	delta := in.ADRPips * fraction
	return in.EntryPrice + in.Direction.Sign()*market.PipsToPrice(in.CurrencyPair, delta)
}

// ComputeTargets returns the 30% and 50% ADR take-profit levels, rounded
// to 5 decimals. ok is false until ADR, entry and direction are valid, and
// when a level overflows.
func ComputeTargets(in ADRExitInput) (ADRTargets, bool) {
	if !in.ready() {
		return ADRTargets{}, false
	}
	tp30, tp50 := ADRTarget(in, ADRFraction30), ADRTarget(in, ADRFraction50)
	if !finite(tp30, tp50) {
		return ADRTargets{}, false
	}
	return ADRTargets{
		TP30: round(tp30, 5),
		TP50: round(tp50, 5),
	}, true
}

// ComputeProgress measures how far current has moved from entry in the
// trade direction. The percentage of ADR is clamped to [0, 100]; pips are
// signed so an adverse move reads negative.
func ComputeProgress(in ADRExitInput, current float64) (ADRProgress, bool) {
	if !in.ready() || current <= 0 {
		return ADRProgress{}, false
	}
	pips := in.Direction.Sign() * market.PriceToPips(in.CurrencyPair, current-in.EntryPrice)
	pct := clamp(pips/in.ADRPips*100, 0, 100)
	if !finite(pips, pct) {
		return ADRProgress{}, false
	}
	return ADRProgress{
		Pips:       round(pips, 1),
		Percentage: round(pct, 1),
	}, true
}

// FormatADRSummary renders the copyable plain-text result block.
func FormatADRSummary(in ADRExitInput, t ADRTargets, p ADRProgress) string {
	var b strings.Builder
	b.WriteString("ADR Exit Helper Results:\n")
	fmt.Fprintf(&b, "Pair: %s\n", market.NormalizeSymbol(in.CurrencyPair))
	fmt.Fprintf(&b, "Direction: %s\n", strings.ToUpper(in.Direction.String()))
	fmt.Fprintf(&b, "Entry: %s\n", ftoa(in.EntryPrice))
	fmt.Fprintf(&b, "ADR(14): %s pips\n", ftoa(in.ADRPips))
	fmt.Fprintf(&b, "30%% TP: %s\n", ftoa(t.TP30))
	fmt.Fprintf(&b, "50%% TP: %s\n", ftoa(t.TP50))
	fmt.Fprintf(&b, "Current Progress: %s pips (%s%%)", ftoa(p.Pips), ftoa(p.Percentage))
	return b.String()
}

func ftoa(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
