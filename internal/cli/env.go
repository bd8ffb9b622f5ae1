package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/fxforecast/auth"
	"github.com/rustyeddy/fxforecast/config"
	"github.com/rustyeddy/fxforecast/market"
	"github.com/rustyeddy/fxforecast/store"
	"github.com/rustyeddy/fxforecast/store/rest"
	"github.com/rustyeddy/fxforecast/store/sqlite"
)

// EnvToken supplies the session token when --token is not given.
const EnvToken = "FXF_TOKEN"

var errNoSecret = errors.New("auth.jwt_secret (or " + config.EnvJWTSecret + ") is required for accounts")

// openStore opens the backend selected by cfg.Store.Type.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "rest":
		timeout, err := cfg.Store.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		log.Debug().Str("url", cfg.Store.BackendURL).Msg("using rest store")
		return rest.New(cfg.Store.BackendURL, cfg.Store.BackendKey, timeout), nil
	case "sqlite":
		log.Debug().Str("path", cfg.Store.DBPath).Msg("using sqlite store")
		return sqlite.New(cfg.Store.DBPath)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func newAuth(cfg *config.Config, users store.UserStore) (*auth.Service, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errNoSecret
	}
	ttl, err := cfg.Auth.TTL()
	if err != nil {
		return nil, err
	}
	return auth.NewService(users, cfg.Auth.JWTSecret, ttl)
}

// instruments loads the instrument list from st. Any failure falls back
// to the built-in catalogue so the calculators keep working.
func instruments(ctx context.Context, st store.InstrumentLister) []market.Instrument {
	if st != nil {
		list, err := st.ListInstruments(ctx)
		if err == nil && len(list) > 0 {
			return list
		}
		if err != nil {
			log.Warn().Err(err).Msg("instrument load failed; using built-in catalogue")
		}
	}
	return market.Instruments
}

func addTokenFlag(cmd *cobra.Command, token *string) {
	cmd.Flags().StringVar(token, "token", "", "Session token from 'user signin' (default $"+EnvToken+")")
}

// session verifies token, or $FXF_TOKEN when token is empty.
func session(svc *auth.Service, token string) (*auth.Session, error) {
	if token == "" {
		token = os.Getenv(EnvToken)
	}
	sess, err := svc.Verify(token)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// withStore opens the configured store, runs fn and closes it.
func withStore(rc *RootConfig, fn func(st store.Store) error) error {
	st, err := openStore(rc.Config)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(st)
}
