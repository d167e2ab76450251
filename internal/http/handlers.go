package http

import (
	"fmt"
	"net/http"

	"cinecalc/internal/core"
	applog "cinecalc/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
		writeMessage(w, http.StatusServiceUnavailable, "Store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeMessage(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.svc.Total(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.AmountJSON(total))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExpense(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if key := r.Header.Get(headerIdempotencyKey); key != "" {
		s.createIdempotent(w, r, key, req.input())
		return
	}

	e, err := s.svc.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeCreated(w, r, e)
}

func (s *Server) writeCreated(w http.ResponseWriter, r *http.Request, e core.Expense) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogExpenseWritten(r.Context(), applog.OpCreate, e)
	w.Header().Set("Location", fmt.Sprintf("/api/expenses/%d", e.ID))
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeExpense(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID != nil && *req.ID != id {
		writeMessage(w, http.StatusBadRequest, "ID mismatch")
		return
	}

	if err := s.svc.Update(r.Context(), id, req.input()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
