package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/fxforecast/dashboard"
	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/risk"
	"github.com/rustyeddy/fxforecast/store"
)

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListInstruments(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list instruments")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []market.Instrument{}
	}
	writeData(w, http.StatusOK, list)
}

type toolResponse struct {
	dashboard.ToolInfo
	UsageCount int `json:"usage_count"`
}

// handleTools lists the tools in navigation order with their usage
// counters. A store failure still returns the metadata.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	usage := map[string]int{}
	if tools, err := s.store.ListTools(r.Context()); err != nil {
		log.Warn().Err(err).Msg("list tools")
	} else {
		for _, t := range tools {
			usage[t.ID] = t.UsageCount
		}
	}

	out := make([]toolResponse, 0, 3)
	for _, ti := range dashboard.Tools() {
		out = append(out, toolResponse{ToolInfo: ti, UsageCount: usage[string(ti.ID)]})
	}
	writeData(w, http.StatusOK, out)
}

// lookupInstrument resolves id for the calculators. A miss or a store error
// yields nil and the calculators fall back to their defaults.
func (s *Server) lookupInstrument(r *http.Request, id string) *market.Instrument {
	if id == "" {
		return nil
	}
	inst, err := s.store.GetInstrument(r.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("instrument_id", id).Msg("instrument lookup failed")
		}
		return nil
	}
	return &inst
}

type positionSizeRequest struct {
	AccountBalance market.Number `json:"account_balance"`
	RiskPercentage market.Number `json:"risk_percentage"`
	StopLossPips   market.Number `json:"stop_loss_pips"`
	InstrumentID   string        `json:"instrument_id"`
}

type positionSizeResponse struct {
	risk.PositionSizeResult
	Units float64 `json:"units"`
	OK    bool    `json:"ok"`
}

func (s *Server) handlePositionSize(w http.ResponseWriter, r *http.Request) {
	var req positionSizeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	in := risk.PositionSizeInput{
		AccountBalance: req.AccountBalance.Or(0),
		RiskPercentage: req.RiskPercentage.Or(0),
		StopLossPips:   req.StopLossPips.Or(0),
		InstrumentID:   req.InstrumentID,
	}
	res := risk.ComputePositionSize(in, s.lookupInstrument(r, req.InstrumentID))
	s.metrics.Calculation(store.ToolPositionSize)

	writeData(w, http.StatusOK, positionSizeResponse{
		PositionSizeResult: res,
		Units:              risk.Units(res.LotSize),
		OK:                 res.OK(),
	})
}

type adrExitRequest struct {
	CurrencyPair string        `json:"currency_pair"`
	ADRValue     market.Number `json:"adr_value"`
	EntryPrice   market.Number `json:"entry_price"`
	Direction    string        `json:"direction"`
	CurrentPrice market.Number `json:"current_price"`
}

type adrExitResponse struct {
	CurrencyPair string            `json:"currency_pair"`
	ADRValue     float64           `json:"adr_value"`
	Direction    risk.Direction    `json:"direction"`
	Targets      *risk.ADRTargets  `json:"targets"`
	Progress     *risk.ADRProgress `json:"progress"`
	Status       string            `json:"status,omitempty"`
	Summary      string            `json:"summary,omitempty"`
}

// handleADRExit computes ADR targets. An absent ADR is autofilled from
// the instrument data; an absent direction means long.
func (s *Server) handleADRExit(w http.ResponseWriter, r *http.Request) {
	var req adrExitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	dir := risk.Long
	if req.Direction != "" {
		d, err := risk.ParseDirection(req.Direction)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dir = d
	}

	pair := market.NormalizeSymbol(req.CurrencyPair)
	if pair == "" {
		pair = "EURUSD"
	}
	adr := req.ADRValue.Or(0)
	if !req.ADRValue.Valid {
		adr = s.averageADR(r, pair)
	}

	in := risk.ADRExitInput{
		CurrencyPair: pair,
		ADRPips:      adr,
		EntryPrice:   req.EntryPrice.Or(0),
		Direction:    dir,
	}
	resp := adrExitResponse{CurrencyPair: pair, ADRValue: adr, Direction: dir}
	if tp, ok := risk.ComputeTargets(in); ok {
		resp.Targets = &tp
		var prog risk.ADRProgress
		if p, ok := risk.ComputeProgress(in, req.CurrentPrice.Or(0)); ok {
			prog = p
			resp.Progress = &p
			resp.Status = p.Status()
		}
		resp.Summary = risk.FormatADRSummary(in, tp, prog)
	}
	s.metrics.Calculation(store.ToolADRExit)
	writeData(w, http.StatusOK, resp)
}

func (s *Server) averageADR(r *http.Request, pair string) float64 {
	if list, err := s.store.ListInstruments(r.Context()); err == nil {
		if inst, ok := market.FindSymbol(list, pair); ok && inst.AverageADR > 0 {
			return inst.AverageADR
		}
	}
	adr, _ := market.AverageADR(pair)
	return adr
}

type riskGuardRequest struct {
	DailyPL         market.Number `json:"daily_pl"`
	WeeklyPL        market.Number `json:"weekly_pl"`
	TradesTaken     market.Number `json:"trades_taken"`
	OpenRiskPercent market.Number `json:"open_risk_percent"`
}

func (req riskGuardRequest) input() risk.GuardInput {
	return risk.GuardInput{
		DailyPL:          req.DailyPL.Or(0),
		WeeklyPL:         req.WeeklyPL.Or(0),
		TradesTakenToday: req.TradesTaken.Int(),
		OpenRiskPercent:  req.OpenRiskPercent.Or(0),
	}
}

type riskGuardResponse struct {
	Input risk.GuardInput `json:"input"`
	risk.GuardStatus
	CanTrade bool `json:"can_trade"`
}

func (s *Server) guard(w http.ResponseWriter, r *http.Request, reset bool) {
	var req riskGuardRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	in := req.input()
	if reset {
		in = risk.ResetCounters(in)
	}
	st := risk.EvaluateGuard(in)
	s.metrics.Calculation(store.ToolRiskGuard)
	s.metrics.Guard(st.Overall.String())

	writeData(w, http.StatusOK, riskGuardResponse{Input: in, GuardStatus: st, CanTrade: st.CanTrade()})
}

func (s *Server) handleRiskGuard(w http.ResponseWriter, r *http.Request) {
	s.guard(w, r, false)
}

func (s *Server) handleRiskGuardReset(w http.ResponseWriter, r *http.Request) {
	s.guard(w, r, true)
}
