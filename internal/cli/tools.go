package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxforecast/dashboard"
	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/risk"
	"github.com/rustyeddy/fxforecast/store"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPositionSize(w io.Writer, p *dashboard.PositionSizeTool) {
	res, ok := p.Result()
	if !ok {
		fmt.Fprintln(w, "Enter balance, risk and stop loss to size a position.")
		if res.RiskAmount > 0 {
			fmt.Fprintf(w, "  Risk amount:  $%.2f\n", res.RiskAmount)
		}
		return
	}
	fmt.Fprintf(w, "Instrument:     %s\n", res.InstrumentName)
	fmt.Fprintf(w, "Risk amount:    $%.2f\n", res.RiskAmount)
	fmt.Fprintf(w, "Lot size:       %.2f lots (%.0f units)\n", res.LotSize, risk.Units(res.LotSize))
	fmt.Fprintf(w, "Pip value:      $%s per lot\n", market.Num(res.PipValue))
	fmt.Fprintf(w, "Stop loss:      %s pips\n", market.Num(res.StopLossPips))
}

func printADR(w io.Writer, a *dashboard.ADRExitTool) {
	if errs := a.Errors(); len(errs) > 0 {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "! %s: %s\n", k, errs[k])
		}
	}
	if _, ok := a.Targets(); !ok {
		fmt.Fprintln(w, "Enter ADR, entry price and direction to compute targets.")
		return
	}
	fmt.Fprintln(w, a.Summary())
	if p, ok := a.Progress(); ok {
		fmt.Fprintf(w, "Status: %s\n", p.Status())
	}
}

func printGuard(w io.Writer, in risk.GuardInput, st risk.GuardStatus) {
	fmt.Fprintf(w, "Daily P/L     %6s%%  %s\n", market.Num(in.DailyPL), st.Daily)
	fmt.Fprintf(w, "Weekly P/L    %6s%%  %s\n", market.Num(in.WeeklyPL), st.Weekly)
	fmt.Fprintf(w, "Trades today  %6d   %s\n", in.TradesTakenToday, st.Trades)
	fmt.Fprintf(w, "Open risk     %6s%%  %s\n", market.Num(in.OpenRiskPercent), st.Risk)
	fmt.Fprintf(w, "Overall: %s\n", st.Overall)
	for _, e := range st.Explanations {
		fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(string(e.Severity)), e.Title, e.Message)
	}
}

func newPositionSizeCmd(rc *RootConfig) *cobra.Command {
	var (
		form   dashboard.PositionSizeForm
		save   bool
		token  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "position-size",
		Aliases: []string{"ps"},
		Short:   "Size a position from balance, risk % and stop loss",
		Example: "  fxforecast position-size --balance 100000 --risk 0.5 --stop 20 --instrument eurusd",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("risk") {
				form.RiskPercentage = market.Num(rc.Config.Defaults.RiskPercent).String()
			}
			if !cmd.Flags().Changed("instrument") {
				form.InstrumentID = rc.Config.Defaults.InstrumentID
			}

			return withStore(rc, func(st store.Store) error {
				ctx := cmd.Context()
				tool := dashboard.NewPositionSizeTool(st)
				tool.SetInstruments(instruments(ctx, st))
				tool.Update(form)

				out := cmd.OutOrStdout()
				res, _ := tool.Result()
				if asJSON {
					if err := writeJSON(out, res); err != nil {
						return err
					}
				} else {
					printPositionSize(out, tool)
				}
				if !save {
					return nil
				}

				svc, err := newAuth(rc.Config, st)
				if err != nil {
					return err
				}
				sess, err := session(svc, token)
				if err != nil {
					return fmt.Errorf("save: %w", err)
				}
				saved, err := tool.Save(ctx, sess)
				if err != nil {
					return fmt.Errorf("save: %w", err)
				}
				if !asJSON {
					fmt.Fprintf(out, "Saved %q as %s\n", saved.Name, saved.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.AccountBalance, "balance", "", "Account balance")
	cmd.Flags().StringVar(&form.RiskPercentage, "risk", "", "Risk per trade in percent (default from config)")
	cmd.Flags().StringVar(&form.StopLossPips, "stop", "", "Stop loss in pips")
	cmd.Flags().StringVar(&form.InstrumentID, "instrument", "", "Instrument id, e.g. eurusd")
	cmd.Flags().BoolVar(&save, "save", false, "Save the calculation to your account")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	addTokenFlag(cmd, &token)
	return cmd
}

func newADRExitCmd(rc *RootConfig) *cobra.Command {
	var (
		pair, adr, entry, direction, current string
		asJSON                               bool
	)

	cmd := &cobra.Command{
		Use:   "adr-exit",
		Short: "Take profit levels at 30% and 50% of the average daily range",
		Example: "  fxforecast adr-exit --pair EURUSD --entry 1.0850 --direction long\n" +
			"  fxforecast adr-exit --pair USDJPY --adr 90 --entry 150.20 --current 150.60",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pair") {
				pair = rc.Config.Defaults.CurrencyPair
			}

			return withStore(rc, func(st store.Store) error {
				tool := dashboard.NewADRExitTool()
				tool.SetInstruments(instruments(cmd.Context(), st))
				tool.SelectPair(pair)
				if cmd.Flags().Changed("adr") {
					_ = tool.Set("adr_value", adr)
				}
				_ = tool.Set("entry_price", entry)
				_ = tool.Set("direction", direction)
				_ = tool.Set("current_price", current)

				out := cmd.OutOrStdout()
				if asJSON {
					tp, hasTP := tool.Targets()
					prog, hasProg := tool.Progress()
					v := struct {
						Input    risk.ADRExitInput `json:"input"`
						Targets  *risk.ADRTargets  `json:"targets"`
						Progress *risk.ADRProgress `json:"progress"`
						Errors   map[string]string `json:"errors,omitempty"`
					}{Input: tool.Input(), Errors: tool.Errors()}
					if hasTP {
						v.Targets = &tp
					}
					if hasProg {
						v.Progress = &prog
					}
					return writeJSON(out, v)
				}
				printADR(out, tool)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&pair, "pair", "", "Currency pair (default from config)")
	cmd.Flags().StringVar(&adr, "adr", "", "ADR(14) in pips (autofilled from the pair)")
	cmd.Flags().StringVar(&entry, "entry", "", "Entry price")
	cmd.Flags().StringVar(&direction, "direction", "long", "Trade direction: long|short")
	cmd.Flags().StringVar(&current, "current", "", "Current price, for progress")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newRiskGuardCmd(rc *RootConfig) *cobra.Command {
	var (
		form   = dashboard.DefaultRiskGuardForm()
		reset  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "risk-guard",
		Short:   "Check daily and weekly drawdown, trade count and open risk",
		Example: "  fxforecast risk-guard --daily -0.6 --weekly -1.2 --trades 1 --risk 0.5",
		RunE: func(cmd *cobra.Command, args []string) error {
			tool := dashboard.NewRiskGuardTool()
			tool.Update(form)
			if reset {
				tool.Reset()
			}

			in, st := tool.Form().Input(), tool.Status()
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, struct {
					Input risk.GuardInput `json:"input"`
					risk.GuardStatus
					CanTrade bool `json:"can_trade"`
				}{in, st, st.CanTrade()})
			}
			printGuard(out, in, st)
			return nil
		},
	}

	cmd.Flags().StringVar(&form.DailyPL, "daily", form.DailyPL, "Daily P/L in percent")
	cmd.Flags().StringVar(&form.WeeklyPL, "weekly", form.WeeklyPL, "Weekly P/L in percent")
	cmd.Flags().StringVar(&form.TradesTaken, "trades", form.TradesTaken, "Trades taken today")
	cmd.Flags().StringVar(&form.OpenRiskPercent, "risk", form.OpenRiskPercent, "Open risk in percent")
	cmd.Flags().BoolVar(&reset, "reset", false, "Reset trades taken and open risk before evaluating")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newInstrumentsCmd(rc *RootConfig) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "List the active instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rc, func(st store.Store) error {
				list, err := st.ListInstruments(cmd.Context())
				if err != nil {
					return fmt.Errorf("list instruments: %w", err)
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, list)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSYMBOL\tNAME\tPIP VALUE\tADR\tCATEGORY")
				for _, inst := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", inst.ID, inst.Symbol, inst.Name,
						market.Num(inst.PipValue), market.Num(inst.AverageADR), inst.Category)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.AddCommand(newInstrumentsSeedCmd(rc))
	return cmd
}

func newInstrumentsSeedCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the built-in instrument catalogue to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rc, func(st store.Store) error {
				n, err := store.SeedInstruments(cmd.Context(), st, market.Instruments)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d instruments\n", n)
				return nil
			})
		},
	}
}
