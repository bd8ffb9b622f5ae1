// Package dashboard composes the three calculators behind a single tool
// selector. Each tool owns its form, result and save state; switching the
// selection never touches another tool's state.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/store"
)

// ErrUnknownField is returned by the tools' Set methods.
var ErrUnknownField = errors.New("unknown field")

type Tool string

const (
	PositionSize Tool = store.ToolPositionSize
	ADRExit      Tool = store.ToolADRExit
	RiskGuard    Tool = store.ToolRiskGuard
)

type ToolInfo struct {
	ID          Tool   `json:"id"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var toolInfo = []ToolInfo{
	{
		ID:      PositionSize,
		Name:    "Position Size",
		Summary: "Calculate optimal lot sizes",
		Title:   "Position Size Calculator",
		Description: "Calculate optimal lot sizes based on your account equity and risk tolerance. " +
			"Follow the FXFORECAST framework with disciplined position sizing.",
	},
	{
		ID:      ADRExit,
		Name:    "ADR Exit",
		Summary: "ADR-based exit levels",
		Title:   "ADR Exit Helper",
		Description: "Determine take profit levels using Average Daily Range (ADR) methodology. " +
			"Set realistic exit targets at 30% and 50% ADR levels.",
	},
	{
		ID:      RiskGuard,
		Name:    "Risk Guard",
		Summary: "Risk management monitor",
		Title:   "Risk Guard Monitor",
		Description: "Monitor your risk parameters in real-time. Stay within FXFORECAST limits: " +
			"max 0.5% risk per trade, 2 trades daily, -1% daily and -4% weekly drawdown limits.",
	},
}

// Tools returns the tool metadata in navigation order.
func Tools() []ToolInfo {
	out := make([]ToolInfo, len(toolInfo))
	copy(out, toolInfo)
	return out
}

// ParseTool maps an id to a Tool. Unknown ids select the position size
// calculator.
func ParseTool(s string) Tool {
	switch Tool(strings.ToLower(strings.TrimSpace(s))) {
	case ADRExit:
		return ADRExit
	case RiskGuard:
		return RiskGuard
	default:
		return PositionSize
	}
}

func (t Tool) Info() ToolInfo {
	for _, ti := range toolInfo {
		if ti.ID == t {
			return ti
		}
	}
	return toolInfo[0]
}

func (t Tool) String() string { return string(t) }

type Dashboard struct {
	active      Tool
	instruments []market.Instrument

	PositionSize *PositionSizeTool
	ADRExit      *ADRExitTool
	RiskGuard    *RiskGuardTool
}

// New returns a dashboard with the position size calculator selected.
// saver may be nil, in which case saving always fails.
func New(saver Saver) *Dashboard {
	return &Dashboard{
		active:       PositionSize,
		PositionSize: NewPositionSizeTool(saver),
		ADRExit:      NewADRExitTool(),
		RiskGuard:    NewRiskGuardTool(),
	}
}

func (d *Dashboard) Active() Tool { return d.active }

// Select changes the active tool and nothing else.
func (d *Dashboard) Select(t Tool) {
	d.active = ParseTool(string(t))
}

func (d *Dashboard) Instruments() []market.Instrument { return d.instruments }

// SetInstruments routes reference data into the calculators that use it.
func (d *Dashboard) SetInstruments(list []market.Instrument) {
	d.instruments = list
	d.PositionSize.SetInstruments(list)
	d.ADRExit.SetInstruments(list)
}

// LoadInstruments fetches reference data from l. On failure the
// calculators keep working with their defaults and the error is returned
// for display.
func (d *Dashboard) LoadInstruments(ctx context.Context, l store.InstrumentLister) error {
	if l == nil {
		return nil
	}
	list, err := l.ListInstruments(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("instrument load failed; using defaults")
		return fmt.Errorf("load instruments: %w", err)
	}
	d.SetInstruments(list)
	return nil
}
