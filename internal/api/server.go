// Package api serves the calculators, accounts and saved calculations as a
// JSON HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/fxforecast/auth"
	"github.com/rustyeddy/fxforecast/metrics"
	"github.com/rustyeddy/fxforecast/store"
)

type Options struct {
	Store   store.Store
	Auth    *auth.Service
	Metrics *metrics.Metrics

	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer

	// AuthRate and AuthBurst limit sign-in and sign-up per client
	// address. Zero values use DefaultAuthRate and DefaultAuthBurst.
	AuthRate  rate.Limit
	AuthBurst int
}

type Server struct {
	store   store.Store
	auth    *auth.Service
	metrics *metrics.Metrics
	router  *mux.Router

	authLimit *clientLimiter
}

func New(opts Options) *Server {
	s := &Server{
		store:   opts.Store,
		auth:    opts.Auth,
		metrics: opts.Metrics,
		router:  mux.NewRouter(),

		authLimit: newClientLimiter(opts.AuthRate, opts.AuthBurst),
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := s.router
	r.Use(s.instrument)

	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/instruments", s.handleInstruments).Methods("GET")
	api.HandleFunc("/tools", s.handleTools).Methods("GET")
	api.HandleFunc("/tools/position-size", s.handlePositionSize).Methods("POST")
	api.HandleFunc("/tools/adr-exit", s.handleADRExit).Methods("POST")
	api.HandleFunc("/tools/risk-guard", s.handleRiskGuard).Methods("POST")
	api.HandleFunc("/tools/risk-guard/reset", s.handleRiskGuardReset).Methods("POST")

	api.HandleFunc("/auth/signup", s.authLimit.limit(s.handleSignUp)).Methods("POST")
	api.HandleFunc("/auth/signin", s.authLimit.limit(s.handleSignIn)).Methods("POST")
	api.Handle("/auth/profile", s.requireSession(s.handleProfile)).Methods("GET")
	api.Handle("/auth/profile", s.requireSession(s.handleUpdateProfile)).Methods("PATCH")

	api.Handle("/calculations", s.requireSession(s.handleListCalculations)).Methods("GET")
	api.Handle("/calculations", s.requireSession(s.handleSaveCalculation)).Methods("POST")
	api.Handle("/calculations/{id}", s.requireSession(s.handleUpdateCalculation)).Methods("PATCH")
	api.Handle("/calculations/{id}", s.requireSession(s.handleDeleteCalculation)).Methods("DELETE")

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// envelope is the {data, error} shape of every JSON response.
type envelope struct {
	Data  any     `json:"data"`
	Error *string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
		buf.Reset()
		msg := "encode response: " + err.Error()
		json.NewEncoder(&buf).Encode(envelope{Error: &msg})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	writeJSON(w, status, envelope{Error: &msg})
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// storeStatus maps store errors to HTTP statuses.
func storeStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}
