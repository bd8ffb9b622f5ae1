package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/fxforecast/internal/api"
	"github.com/rustyeddy/fxforecast/metrics"
	"github.com/rustyeddy/fxforecast/store"
)

func newServeCmd(rc *RootConfig) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculators and saved calculations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rc.Config
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			rt, err := cfg.Server.ReadTimeoutDuration()
			if err != nil {
				return err
			}
			wt, err := cfg.Server.WriteTimeoutDuration()
			if err != nil {
				return err
			}

			return withStore(rc, func(st store.Store) error {
				svc, err := newAuth(cfg, st)
				if errors.Is(err, errNoSecret) {
					log.Warn().Msg("no jwt secret configured; account endpoints disabled")
					svc = nil
				} else if err != nil {
					return err
				}

				srv := api.New(api.Options{
					Store:   st,
					Auth:    svc,
					Metrics: metrics.New(),

					AuthRate:  rate.Limit(cfg.Server.AuthRate),
					AuthBurst: cfg.Server.AuthBurst,
				})

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return srv.ListenAndServe(ctx, cfg.Server.Addr, rt, wt)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
