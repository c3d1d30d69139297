package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"scenario-advisor/internal/apperr"
	"scenario-advisor/internal/logger"
	"scenario-advisor/internal/types"
)

type errorBody struct {
	Error  string `json:"error"`
	Result any    `json:"result,omitempty"`
}

type registerRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Symbol      string `json:"symbol"`
	Keywords    string `json:"keywords"`
}

type interpretRequest struct {
	Query string `json:"query"`
}

type interpretResponse struct {
	Kind        string `json:"kind"`
	N           int    `json:"n,omitempty"`
	Description string `json:"description"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status. stateStatus is used for State errors.
func statusFor(err error, stateStatus int) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.State:
		return stateStatus
	case apperr.External:
		return http.StatusBadGateway
	case apperr.Auth:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, stateStatus int, result any) {
	status := statusFor(err, stateStatus)
	if status >= http.StatusInternalServerError {
		logger.ErrorWithErr(r.Context(), "Request failed", err, "path", r.URL.Path, "status", status)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Result: result})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validationf("decode", "invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"scenarios": len(s.app.ListScenarios()),
		"jobs":      len(s.app.Jobs()),
	})
}

func (s *Server) registerScenario(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err, http.StatusConflict, nil)
		return
	}
	sc, err := s.app.RegisterScenario(r.Context(), req.Description, req.Amount, req.Symbol, req.Keywords)
	if err != nil {
		writeError(w, r, err, http.StatusConflict, nil)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) listScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios := s.app.ListScenarios()
	if scenarios == nil {
		scenarios = []types.Scenario{}
	}
	writeJSON(w, http.StatusOK, scenarios)
}

func (s *Server) checkNews(w http.ResponseWriter, r *http.Request) {
	entry, err := s.app.CheckNewsNow(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		var result any
		if entry.ScenarioID != "" {
			result = entry
		}
		writeError(w, r, err, http.StatusNotFound, result)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) listNews(w http.ResponseWriter, r *http.Request) {
	entries := s.app.ListNewsLog(r.URL.Query().Get("scenario"))
	if entries == nil {
		entries = []types.NewsLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) interpret(w http.ResponseWriter, r *http.Request) {
	var req interpretRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err, http.StatusConflict, nil)
		return
	}
	intent := s.app.Interpret(r.Context(), req.Query)
	writeJSON(w, http.StatusOK, interpretResponse{
		Kind:        intent.Kind.String(),
		N:           intent.N,
		Description: intent.Describe(),
	})
}

func (s *Server) pending(w http.ResponseWriter, r *http.Request) {
	intent, ok := s.app.Pending()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"pending": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending":     true,
		"kind":        intent.Kind.String(),
		"n":           intent.N,
		"description": intent.Describe(),
	})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Confirm(r.Context())
	if err != nil {
		writeError(w, r, err, http.StatusConflict, nil)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": s.app.Cancel()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	recs, err := s.app.Lookup(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err, http.StatusConflict, nil)
		return
	}
	if recs == nil {
		recs = []types.CompanyRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) submitTrade(w http.ResponseWriter, r *http.Request) {
	var req types.TradeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err, http.StatusConflict, nil)
		return
	}
	res, err := s.app.SubmitTrade(r.Context(), req.Symbol, req.Quantity)
	if err != nil {
		writeError(w, r, err, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) portfolio(w http.ResponseWriter, r *http.Request) {
	entries := s.app.Portfolio()
	if entries == nil {
		entries = []types.PortfolioEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
