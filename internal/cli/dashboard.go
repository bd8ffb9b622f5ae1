package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxforecast/auth"
	"github.com/rustyeddy/fxforecast/dashboard"
	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/store"
)

const sessionHelp = `Commands:
  tools                  list the tools
  use <tool>             switch tool (position-size, adr-exit, risk-guard)
  set <field> <value>    set a field on the active tool
  show                   print the active tool
  reset                  risk guard: clear trades taken and open risk
  signin <email> <pass>  sign in so results can be saved
  save                   save the position size result
  retry                  retry a failed save
  dismiss                clear a failed save
  help                   this text
  quit                   leave`

// replSession is an interactive line session over a Dashboard.
type replSession struct {
	dash *dashboard.Dashboard
	auth *auth.Service
	sess *auth.Session
	out  io.Writer
}

func newDashboardCmd(rc *RootConfig) *cobra.Command {
	var (
		tool  string
		token string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Interactive session over the three calculators",
		Long: `Run the calculators in one session. Each tool keeps its own inputs
while you switch between them. Type 'help' for the commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rc, func(st store.Store) error {
				ctx := cmd.Context()
				s := &replSession{dash: dashboard.New(st), out: cmd.OutOrStdout()}

				if err := s.dash.LoadInstruments(ctx, st); err != nil {
					fmt.Fprintf(s.out, "Instruments unavailable, using defaults: %v\n", err)
				}
				def := rc.Config.Defaults
				_ = s.dash.PositionSize.Set("risk", market.Num(def.RiskPercent).String())
				if def.InstrumentID != "" {
					_ = s.dash.PositionSize.Set("instrument", def.InstrumentID)
				}
				if def.CurrencyPair != "" {
					s.dash.ADRExit.SelectPair(def.CurrencyPair)
				}

				if svc, err := newAuth(rc.Config, st); err == nil {
					s.auth = svc
					if sess, err := session(svc, token); err == nil {
						s.sess = sess
					}
				} else {
					log.Debug().Err(err).Msg("accounts disabled")
				}

				s.dash.Select(dashboard.ParseTool(tool))
				return s.run(ctx, cmd.InOrStdin())
			})
		},
	}

	cmd.Flags().StringVar(&tool, "tool", string(dashboard.PositionSize), "Tool to start with")
	addTokenFlag(cmd, &token)
	return cmd
}

func (s *replSession) prompt() {
	fmt.Fprintf(s.out, "%s> ", s.dash.Active())
}

// run reads commands until quit or end of input.
func (s *replSession) run(ctx context.Context, in io.Reader) error {
	s.show()
	sc := bufio.NewScanner(in)
	s.prompt()
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		quit, err := s.exec(ctx, sc.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
		s.prompt()
	}
	fmt.Fprintln(s.out)
	return sc.Err()
}

// exec runs one command line. quit reports whether the session should end.
func (s *replSession) exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(s.out, sessionHelp)
	case "tools":
		for _, ti := range dashboard.Tools() {
			mark := " "
			if ti.ID == s.dash.Active() {
				mark = "*"
			}
			fmt.Fprintf(s.out, "%s %-14s %s\n", mark, ti.ID, ti.Summary)
		}
	case "use":
		if len(args) != 1 {
			return false, errors.New("usage: use <tool>")
		}
		s.dash.Select(dashboard.ParseTool(args[0]))
		s.show()
	case "set":
		if len(args) < 2 {
			return false, errors.New("usage: set <field> <value>")
		}
		if err := s.set(args[0], strings.Join(args[1:], " ")); err != nil {
			return false, err
		}
		s.show()
	case "show":
		s.show()
	case "reset":
		if s.dash.Active() != dashboard.RiskGuard {
			return false, errors.New("reset applies to the risk guard")
		}
		s.dash.RiskGuard.Reset()
		s.show()
	case "signin":
		return false, s.signIn(ctx, args)
	case "save":
		return false, s.save(ctx, false)
	case "retry":
		return false, s.save(ctx, true)
	case "dismiss":
		s.dash.PositionSize.Dismiss()
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	return false, nil
}

func (s *replSession) set(field, value string) error {
	switch s.dash.Active() {
	case dashboard.ADRExit:
		return s.dash.ADRExit.Set(field, value)
	case dashboard.RiskGuard:
		return s.dash.RiskGuard.Set(field, value)
	default:
		return s.dash.PositionSize.Set(field, value)
	}
}

func (s *replSession) show() {
	info := s.dash.Active().Info()
	fmt.Fprintf(s.out, "== %s ==\n", info.Title)

	switch s.dash.Active() {
	case dashboard.ADRExit:
		f := s.dash.ADRExit.Form()
		fmt.Fprintf(s.out, "pair=%s adr=%s entry=%s direction=%s current=%s\n",
			f.CurrencyPair, f.ADRValue, f.EntryPrice, f.Direction, f.CurrentPrice)
		printADR(s.out, s.dash.ADRExit)
	case dashboard.RiskGuard:
		g := s.dash.RiskGuard
		printGuard(s.out, g.Form().Input(), g.Status())
	default:
		p := s.dash.PositionSize
		f := p.Form()
		fmt.Fprintf(s.out, "balance=%s risk=%s stop=%s instrument=%s\n",
			f.AccountBalance, f.RiskPercentage, f.StopLossPips, f.InstrumentID)
		printPositionSize(s.out, p)
		if e := p.SaveError(); e != nil {
			fmt.Fprintf(s.out, "! %v (retry or dismiss)\n", e)
		}
	}
}

func (s *replSession) signIn(ctx context.Context, args []string) error {
	if s.auth == nil {
		return errNoSecret
	}
	if len(args) != 2 {
		return errors.New("usage: signin <email> <password>")
	}
	sess, err := s.auth.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	s.sess = &sess
	fmt.Fprintf(s.out, "Signed in as %s\n", sess.Email)
	return nil
}

func (s *replSession) save(ctx context.Context, retry bool) error {
	p := s.dash.PositionSize
	var (
		saved store.Calculation
		err   error
	)
	if retry {
		if p.SaveError() == nil {
			fmt.Fprintln(s.out, "Nothing to retry.")
			return nil
		}
		saved, err = p.Retry(ctx, s.sess)
	} else {
		saved, err = p.Save(ctx, s.sess)
	}
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return errors.New("sign in to save calculations")
		}
		return err
	}
	fmt.Fprintf(s.out, "Saved %q as %s\n", saved.Name, saved.ID)
	return nil
}
