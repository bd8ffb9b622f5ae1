package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/fxforecast/auth"
	"github.com/rustyeddy/fxforecast/store"
)

var validate = validator.New()

func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return storeStatus(err)
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("accounts are not configured"))
		return
	}
	var req auth.SignUpRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	sess, err := s.auth.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, authStatus(err), err)
		return
	}
	writeData(w, http.StatusCreated, sess)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("accounts are not configured"))
		return
	}
	var req signInRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, authStatus(err), err)
		return
	}
	writeData(w, http.StatusOK, sess)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Profile(r.Context(), SessionFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, authStatus(err), err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd auth.ProfileUpdate
	if err := decode(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	u, err := s.auth.UpdateProfile(r.Context(), SessionFrom(r.Context()).UserID, upd)
	if err != nil {
		writeError(w, authStatus(err), err)
		return
	}
	writeData(w, http.StatusOK, u)
}

func intParam(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

type listResponse struct {
	store.Page
	Error *string `json:"error"`
}

func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intParam(q.Get("page"), 1)
	limit := intParam(q.Get("limit"), store.DefaultPageLimit)

	p, err := s.store.ListCalculations(r.Context(), SessionFrom(r.Context()).UserID, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("list calculations")
		msg := err.Error()
		writeJSON(w, http.StatusInternalServerError, listResponse{
			Page:  store.Page{Calculations: []store.Calculation{}, CurrentPage: page},
			Error: &msg,
		})
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Page: p})
}

type saveRequest struct {
	ToolID          string             `json:"tool_id" validate:"required,oneof=position-size adr-exit risk-guard"`
	InstrumentID    string             `json:"instrument_id"`
	Name            string             `json:"calculation_name" validate:"max=200"`
	InputParameters map[string]string  `json:"input_parameters"`
	Results         map[string]float64 `json:"results"`
	Notes           string             `json:"notes" validate:"max=2000"`
}

func (s *Server) handleSaveCalculation(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sess := SessionFrom(r.Context())
	c, err := s.store.SaveCalculation(r.Context(), store.Calculation{
		UserID:          sess.UserID,
		ToolID:          req.ToolID,
		InstrumentID:    req.InstrumentID,
		Name:            req.Name,
		InputParameters: req.InputParameters,
		Results:         req.Results,
		Notes:           req.Notes,
	})
	s.metrics.Save(err)
	if err != nil {
		log.Error().Err(err).Str("user_id", sess.UserID).Msg("save calculation")
		writeError(w, storeStatus(err), err)
		return
	}
	if err := s.store.IncrementToolUsage(r.Context(), req.ToolID); err != nil {
		log.Warn().Err(err).Str("tool", req.ToolID).Msg("increment tool usage")
	}
	writeData(w, http.StatusCreated, c)
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (s *Server) handleUpdateCalculation(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := s.store.UpdateCalculationNotes(r.Context(), mux.Vars(r)["id"], SessionFrom(r.Context()).UserID, req.Notes)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	writeData(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCalculation(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteCalculation(r.Context(), mux.Vars(r)["id"], SessionFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, storeStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
