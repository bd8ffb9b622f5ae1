package dashboard

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/risk"
)

type ADRExitForm struct {
	CurrencyPair string `json:"currency_pair"`
	ADRValue     string `json:"adr_value"`
	EntryPrice   string `json:"entry_price"`
	Direction    string `json:"direction"`
	CurrentPrice string `json:"current_price"`
}

func DefaultADRExitForm() ADRExitForm {
	return ADRExitForm{CurrencyPair: "EURUSD", Direction: "long"}
}

// Field validation messages, keyed by form field.
const (
	msgADRPositive   = "ADR value must be greater than 0"
	msgEntryPositive = "Entry price must be greater than 0"
	msgDirection     = "Direction must be long or short"
)

// Input parses the form. Field errors are reported only for fields that
// have been filled in.
func (f ADRExitForm) Input() (risk.ADRExitInput, map[string]string) {
	errs := map[string]string{}
	in := risk.ADRExitInput{CurrencyPair: market.NormalizeSymbol(f.CurrencyPair)}

	if strings.TrimSpace(f.ADRValue) != "" {
		n := market.ParseNumber(f.ADRValue)
		if !n.Valid || n.Value <= 0 {
			errs["adr_value"] = msgADRPositive
		} else {
			in.ADRPips = n.Value
		}
	}
	if strings.TrimSpace(f.EntryPrice) != "" {
		n := market.ParseNumber(f.EntryPrice)
		if !n.Valid || n.Value <= 0 {
			errs["entry_price"] = msgEntryPositive
		} else {
			in.EntryPrice = n.Value
		}
	}
	if d, err := risk.ParseDirection(f.Direction); err != nil {
		errs["direction"] = msgDirection
	} else {
		in.Direction = d
	}
	return in, errs
}

type ADRExitTool struct {
	instruments []market.Instrument

	form     ADRExitForm
	input    risk.ADRExitInput
	errs     map[string]string
	targets  risk.ADRTargets
	hasTP    bool
	progress risk.ADRProgress
	hasProg  bool
}

func NewADRExitTool() *ADRExitTool {
	a := &ADRExitTool{}
	a.Update(DefaultADRExitForm())
	return a
}

func (a *ADRExitTool) SetInstruments(list []market.Instrument) {
	a.instruments = list
}

func (a *ADRExitTool) Form() ADRExitForm { return a.form }

func (a *ADRExitTool) Update(f ADRExitForm) {
	a.form = f
	a.input, a.errs = f.Input()
	a.targets, a.hasTP = risk.ComputeTargets(a.input)
	a.progress, a.hasProg = risk.ComputeProgress(a.input, market.ParseNumber(f.CurrentPrice).Or(0))
}

// SelectPair switches the pair and autofills the ADR from the instrument
// data, falling back to the built-in catalogue. An unknown pair clears
// the ADR.
func (a *ADRExitTool) SelectPair(pair string) {
	f := a.form
	f.CurrencyPair = market.NormalizeSymbol(pair)
	f.ADRValue = ""
	if adr, ok := a.averageADR(f.CurrencyPair); ok {
		f.ADRValue = market.Num(adr).String()
	}
	a.Update(f)
}

func (a *ADRExitTool) averageADR(pair string) (float64, bool) {
	if inst, ok := market.FindSymbol(a.instruments, pair); ok && inst.AverageADR > 0 {
		return inst.AverageADR, true
	}
	return market.AverageADR(pair)
}

func (a *ADRExitTool) Set(field, value string) error {
	f := a.form
	switch field {
	case "currency_pair", "pair":
		a.SelectPair(value)
		return nil
	case "adr_value", "adr":
		f.ADRValue = value
	case "entry_price", "entry":
		f.EntryPrice = value
	case "direction":
		f.Direction = value
	case "current_price", "current":
		f.CurrentPrice = value
	default:
		return fmt.Errorf("adr exit: %w %q", ErrUnknownField, field)
	}
	a.Update(f)
	return nil
}

// Errors returns the field validation messages for the current form.
func (a *ADRExitTool) Errors() map[string]string { return a.errs }

func (a *ADRExitTool) Input() risk.ADRExitInput { return a.input }

func (a *ADRExitTool) Targets() (risk.ADRTargets, bool) { return a.targets, a.hasTP }

func (a *ADRExitTool) Progress() (risk.ADRProgress, bool) { return a.progress, a.hasProg }

// Summary is the copyable result text, empty until targets exist.
func (a *ADRExitTool) Summary() string {
	if !a.hasTP {
		return ""
	}
	return risk.FormatADRSummary(a.input, a.targets, a.progress)
}
