package dashboard

import (
	"fmt"

	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/risk"
)

type RiskGuardForm struct {
	DailyPL         string `json:"daily_pl"`
	WeeklyPL        string `json:"weekly_pl"`
	TradesTaken     string `json:"trades_taken"`
	OpenRiskPercent string `json:"open_risk_percent"`
}

func DefaultRiskGuardForm() RiskGuardForm {
	return RiskGuardForm{DailyPL: "0", WeeklyPL: "0", TradesTaken: "0", OpenRiskPercent: "0"}
}

// Input parses the form; blank or invalid fields read as zero.
func (f RiskGuardForm) Input() risk.GuardInput {
	return risk.GuardInput{
		DailyPL:          market.ParseNumber(f.DailyPL).Or(0),
		WeeklyPL:         market.ParseNumber(f.WeeklyPL).Or(0),
		TradesTakenToday: market.ParseNumber(f.TradesTaken).Int(),
		OpenRiskPercent:  market.ParseNumber(f.OpenRiskPercent).Or(0),
	}
}

type RiskGuardTool struct {
	form   RiskGuardForm
	status risk.GuardStatus
}

func NewRiskGuardTool() *RiskGuardTool {
	g := &RiskGuardTool{}
	g.Update(DefaultRiskGuardForm())
	return g
}

func (g *RiskGuardTool) Form() RiskGuardForm { return g.form }

func (g *RiskGuardTool) Update(f RiskGuardForm) {
	g.form = f
	g.status = risk.EvaluateGuard(f.Input())
}

func (g *RiskGuardTool) Set(field, value string) error {
	f := g.form
	switch field {
	case "daily_pl", "daily":
		f.DailyPL = value
	case "weekly_pl", "weekly":
		f.WeeklyPL = value
	case "trades_taken", "trades":
		f.TradesTaken = value
	case "open_risk_percent", "risk":
		f.OpenRiskPercent = value
	default:
		return fmt.Errorf("risk guard: %w %q", ErrUnknownField, field)
	}
	g.Update(f)
	return nil
}

// Reset zeroes trades taken and open risk. Daily and weekly P/L stay.
func (g *RiskGuardTool) Reset() {
	f := g.form
	f.TradesTaken = "0"
	f.OpenRiskPercent = "0"
	g.Update(f)
}

func (g *RiskGuardTool) Status() risk.GuardStatus { return g.status }
