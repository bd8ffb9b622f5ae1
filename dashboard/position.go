package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/fxforecast/auth"
	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/risk"
	"github.com/rustyeddy/fxforecast/store"
)

var (
	ErrNoResult = errors.New("nothing to save: no position size result")
	ErrNoSaver  = errors.New("saving is not configured")
)

// Saver persists calculations and bumps the tool usage counter.
type Saver interface {
	store.CalculationSaver
	IncrementToolUsage(ctx context.Context, toolID string) error
}

// SaveError records a failed save. The form and result stay as they were
// so the save can be retried.
type SaveError struct {
	Err      error
	Attempts int
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// PositionSizeForm holds the raw form values.
type PositionSizeForm struct {
	AccountBalance string `json:"account_balance"`
	RiskPercentage string `json:"risk_percentage"`
	StopLossPips   string `json:"stop_loss_pips"`
	InstrumentID   string `json:"instrument_id"`
}

func DefaultPositionSizeForm() PositionSizeForm {
	return PositionSizeForm{RiskPercentage: "2"}
}

// Input parses the form.
func (f PositionSizeForm) Input() risk.PositionSizeInput {
	return risk.PositionSizeInput{
		AccountBalance: market.ParseNumber(f.AccountBalance).Or(0),
		RiskPercentage: market.ParseNumber(f.RiskPercentage).Or(0),
		StopLossPips:   market.ParseNumber(f.StopLossPips).Or(0),
		InstrumentID:   f.InstrumentID,
	}
}

type PositionSizeTool struct {
	saver       Saver
	instruments []market.Instrument

	form    PositionSizeForm
	result  risk.PositionSizeResult
	saveErr *SaveError
	saved   *store.Calculation
}

func NewPositionSizeTool(saver Saver) *PositionSizeTool {
	p := &PositionSizeTool{saver: saver}
	p.Update(DefaultPositionSizeForm())
	return p
}

func (p *PositionSizeTool) SetInstruments(list []market.Instrument) {
	p.instruments = list
	p.recompute()
}

func (p *PositionSizeTool) Form() PositionSizeForm { return p.form }

// Update replaces the form and recomputes the result.
func (p *PositionSizeTool) Update(f PositionSizeForm) {
	p.form = f
	p.recompute()
}

// Set updates one form field by its json name.
func (p *PositionSizeTool) Set(field, value string) error {
	f := p.form
	switch field {
	case "account_balance", "balance":
		f.AccountBalance = value
	case "risk_percentage", "risk":
		f.RiskPercentage = value
	case "stop_loss_pips", "stop":
		f.StopLossPips = value
	case "instrument_id", "instrument":
		f.InstrumentID = value
	default:
		return fmt.Errorf("position size: %w %q", ErrUnknownField, field)
	}
	p.Update(f)
	return nil
}

func (p *PositionSizeTool) recompute() {
	inst, _ := market.FindInstrument(p.instruments, p.form.InstrumentID)
	p.result = risk.ComputePositionSize(p.form.Input(), inst)
}

// Result returns the current result; ok is false until the inputs
// produce a position.
func (p *PositionSizeTool) Result() (risk.PositionSizeResult, bool) {
	return p.result, p.result.OK()
}

func (p *PositionSizeTool) SaveError() *SaveError { return p.saveErr }

// LastSaved returns the calculation stored by the last successful save.
func (p *PositionSizeTool) LastSaved() *store.Calculation { return p.saved }

// Calculation builds the record Save would persist for sess.
func (p *PositionSizeTool) Calculation(sess *auth.Session) store.Calculation {
	r := p.result
	c := store.Calculation{
		ToolID:       store.ToolPositionSize,
		InstrumentID: p.form.InstrumentID,
		Name:         r.InstrumentName + " Position Size",
		InputParameters: map[string]string{
			"account_balance": p.form.AccountBalance,
			"risk_percentage": p.form.RiskPercentage,
			"stop_loss_pips":  p.form.StopLossPips,
			"instrument_id":   p.form.InstrumentID,
		},
		Results: map[string]float64{
			"risk_amount":     r.RiskAmount,
			"lot_size":        r.LotSize,
			"pip_value":       r.PipValue,
			"total_risk_pips": r.StopLossPips,
		},
		Notes: fmt.Sprintf("Risk: %s%% | Stop Loss: %s pips", p.form.RiskPercentage, p.form.StopLossPips),
	}
	if sess != nil {
		c.UserID = sess.UserID
	}
	return c
}

// Save persists the current result for sess. It needs an authenticated
// session and a result. A persistence failure is recorded as a SaveError
// and leaves the form and result untouched; nothing is retried
// automatically.
func (p *PositionSizeTool) Save(ctx context.Context, sess *auth.Session) (store.Calculation, error) {
	if !sess.Authenticated() {
		return store.Calculation{}, auth.ErrUnauthenticated
	}
	if !p.result.OK() {
		return store.Calculation{}, ErrNoResult
	}

	attempts := 1
	if p.saveErr != nil {
		attempts = p.saveErr.Attempts + 1
	}

	var (
		saved store.Calculation
		err   error
	)
	if p.saver == nil {
		err = ErrNoSaver
	} else {
		saved, err = p.saver.SaveCalculation(ctx, p.Calculation(sess))
	}
	if err != nil {
		p.saveErr = &SaveError{Err: err, Attempts: attempts}
		log.Error().Err(err).Int("attempts", attempts).Str("user_id", sess.UserID).Msg("save calculation failed")
		return store.Calculation{}, p.saveErr
	}

	p.saveErr = nil
	p.saved = &saved
	if err := p.saver.IncrementToolUsage(ctx, store.ToolPositionSize); err != nil {
		log.Warn().Err(err).Str("tool", store.ToolPositionSize).Msg("increment tool usage failed")
	}
	log.Info().Str("calculation_id", saved.ID).Str("user_id", sess.UserID).Msg("calculation saved")
	return saved, nil
}

// Retry repeats a failed save. It is a no-op returning nil when there is
// no recorded failure.
func (p *PositionSizeTool) Retry(ctx context.Context, sess *auth.Session) (store.Calculation, error) {
	if p.saveErr == nil {
		return store.Calculation{}, nil
	}
	return p.Save(ctx, sess)
}

// Dismiss clears a recorded save failure.
func (p *PositionSizeTool) Dismiss() {
	p.saveErr = nil
}
