package risk

// Limits are the FXFORECAST framework risk limits. All percentages are in
// percent units (-1.0 means -1%).
type Limits struct {
	// Circuit breakers
	MaxDailyLossPct  float64 // -1.0
	MaxWeeklyLossPct float64 // -4.0

	// Early warnings
	WarnDailyLossPct  float64 // -0.5
	WarnWeeklyLossPct float64 // -2.0

	// Exposure
	MaxDailyTrades     int     // 2
	MaxRiskPerTradePct float64 // 0.5
}

// DefaultLimits are process-wide and not user editable.
var DefaultLimits = Limits{
	MaxDailyLossPct:    -1.0,
	MaxWeeklyLossPct:   -4.0,
	WarnDailyLossPct:   -0.5,
	WarnWeeklyLossPct:  -2.0,
	MaxDailyTrades:     2,
	MaxRiskPerTradePct: 0.5,
}

type GuardInput struct {
	DailyPL          float64 `json:"daily_pl"`  // percent, signed
	WeeklyPL         float64 `json:"weekly_pl"` // percent, signed
	TradesTakenToday int     `json:"trades_taken"`
	OpenRiskPercent  float64 `json:"open_risk_percent"`
}

// ResetCounters clears the intraday counters (trades taken and open
// risk). Daily and weekly P/L are kept.
func ResetCounters(in GuardInput) GuardInput {
	in.TradesTakenToday = 0
	in.OpenRiskPercent = 0
	return in
}
