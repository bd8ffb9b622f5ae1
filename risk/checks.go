package risk

import (
	"fmt"
	"strconv"
)

type Status int

const (
	Safe Status = iota
	Warning
	Locked
)

func (s Status) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case Warning:
		return "WARNING"
	case Locked:
		return "LOCKED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Max returns the more severe of a and b.
func Max(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

type Axis string

const (
	AxisDaily   Axis = "daily"
	AxisWeekly  Axis = "weekly"
	AxisTrades  Axis = "trades"
	AxisRisk    Axis = "risk"
	AxisOverall Axis = "overall"
)

type Explanation struct {
	Axis     Axis     `json:"axis"`
	Severity Severity `json:"type"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

type GuardStatus struct {
	Daily   Status `json:"daily_status"`
	Weekly  Status `json:"weekly_status"`
	Trades  Status `json:"trades_status"`
	Risk    Status `json:"risk_status"`
	Overall Status `json:"overall"`

	Explanations []Explanation `json:"explanations"`
}

// CanTrade is false once any axis is locked.
func (g GuardStatus) CanTrade() bool {
	return g.Overall != Locked
}

func (g *GuardStatus) add(axis Axis, sev Severity, title, msg string) {
	g.Explanations = append(g.Explanations, Explanation{
		Axis:     axis,
		Severity: sev,
		Title:    title,
		Message:  msg,
	})
}

// EvaluateGuard classifies in against DefaultLimits.
func EvaluateGuard(in GuardInput) GuardStatus {
	return EvaluateGuardWith(DefaultLimits, in)
}

// EvaluateGuardWith classifies each axis independently from its raw
// thresholds. Explanations are appended in axis order (daily, weekly,
// trades, risk), at most one per axis.
func EvaluateGuardWith(l Limits, in GuardInput) GuardStatus {
	g := GuardStatus{}

	// Daily P/L
	switch {
	case in.DailyPL <= l.MaxDailyLossPct:
		g.Daily = Locked
		g.add(AxisDaily, SeverityError, "Daily Loss Limit Reached",
			fmt.Sprintf("You've hit the %s%% daily loss limit. No more trades today.", pct(l.MaxDailyLossPct)))
	case in.DailyPL <= l.WarnDailyLossPct:
		g.Daily = Warning
		g.add(AxisDaily, SeverityWarning, "Daily Loss Warning",
			fmt.Sprintf("You're at %s%% daily loss. Approach %s%% limit carefully.", pct(in.DailyPL), pct(l.MaxDailyLossPct)))
	case in.DailyPL > 0:
		g.add(AxisDaily, SeveritySuccess, "Daily Performance",
			fmt.Sprintf("Positive day with +%s%% gain. Stay disciplined.", pct(in.DailyPL)))
	}

	// Weekly P/L
	switch {
	case in.WeeklyPL <= l.MaxWeeklyLossPct:
		g.Weekly = Locked
		g.add(AxisWeekly, SeverityError, "Weekly Loss Limit Reached",
			fmt.Sprintf("You've hit the %s%% weekly loss limit. No more trades this week.", pct(l.MaxWeeklyLossPct)))
	case in.WeeklyPL <= l.WarnWeeklyLossPct:
		g.Weekly = Warning
		g.add(AxisWeekly, SeverityWarning, "Weekly Loss Warning",
			fmt.Sprintf("You're at %s%% weekly loss. Approach %s%% limit carefully.", pct(in.WeeklyPL), pct(l.MaxWeeklyLossPct)))
	}

	// Trade count
	switch {
	case in.TradesTakenToday >= l.MaxDailyTrades:
		g.Trades = Locked
		g.add(AxisTrades, SeverityError, "Daily Trade Limit Reached",
			fmt.Sprintf("You've taken %d trades today. Maximum is %d.", in.TradesTakenToday, l.MaxDailyTrades))
	case in.TradesTakenToday == l.MaxDailyTrades-1 && in.TradesTakenToday > 0:
		g.Trades = Warning
		g.add(AxisTrades, SeverityWarning, "Trade Count Warning",
			fmt.Sprintf("You've taken %d trade today. Only 1 more allowed.", in.TradesTakenToday))
	}

	// Open risk has no locked tier.
	if in.OpenRiskPercent > l.MaxRiskPerTradePct {
		g.Risk = Warning
		g.add(AxisRisk, SeverityWarning, "High Risk Per Trade",
			fmt.Sprintf("Current open risk is %s%%. Recommended maximum is %s%%.", pct(in.OpenRiskPercent), pct(l.MaxRiskPerTradePct)))
	}

	g.Overall = Max(Max(g.Daily, g.Weekly), Max(g.Trades, g.Risk))

	if g.Overall == Safe && len(g.Explanations) == 0 {
		g.add(AxisOverall, SeveritySuccess, "All Systems Green",
			"You're within all risk parameters. Trade with confidence but stay disciplined.")
	}
	return g
}

func pct(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
