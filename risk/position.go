package risk

// Position sizing for a fixed-fraction risk model:
//
//	riskAmount = balance * riskPct / 100
//	lots       = riskAmount / (stopPips * pipValue)
//
// pipValue is per standard lot in account currency, so the result is in
// standard lots.

import "github.com/rustyeddy/fxforecast/market"

const unknownInstrument = "Unknown"

type PositionSizeInput struct {
	AccountBalance float64 `json:"account_balance"`
	RiskPercentage float64 `json:"risk_percentage"` // 0..100
	StopLossPips   float64 `json:"stop_loss_pips"`
	InstrumentID   string  `json:"instrument_id,omitempty"`
}

type PositionSizeResult struct {
	RiskAmount     float64 `json:"risk_amount"`
	LotSize        float64 `json:"lot_size"`
	PipValue       float64 `json:"pip_value"`
	StopLossPips   float64 `json:"total_risk_pips"`
	InstrumentName string  `json:"instrument_name"`
}

// OK reports whether the inputs produced a usable position size.
func (r PositionSizeResult) OK() bool {
	return r.LotSize > 0
}

// ComputePositionSize sizes a position for in. inst may be nil. Invalid
// inputs never fail: they produce a zero lot size.
func ComputePositionSize(in PositionSizeInput, inst *market.Instrument) PositionSizeResult {
	res := PositionSizeResult{
		PipValue:       market.PipValueOf(inst),
		StopLossPips:   in.StopLossPips,
		InstrumentName: unknownInstrument,
	}
	if inst != nil && inst.Name != "" {
		res.InstrumentName = inst.Name
	}

	if in.AccountBalance <= 0 || in.RiskPercentage <= 0 || in.RiskPercentage > 100 {
		return res
	}
	res.RiskAmount = in.AccountBalance * (in.RiskPercentage / 100)

	pipRisk := in.StopLossPips * res.PipValue
	if in.StopLossPips <= 0 || pipRisk <= 0 {
		return res
	}
	// Overflow degrades to a zero lot size like any other unusable input.
	if lots := res.RiskAmount / pipRisk; finite(lots) {
		res.LotSize = lots
	}
	return res
}

// Units converts standard lots to units (1 lot = 100,000 units).
func Units(lots float64) float64 {
	return lots * 100_000
}
