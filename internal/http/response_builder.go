package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"cinecalc/internal/core"
	applog "cinecalc/internal/log"
	"cinecalc/internal/storage"
)

// errorBody is the shape of every error response.
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// writeError maps an error to its status code. Server errors are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *core.ValidationError
		breq *badRequest
	)
	switch {
	case errors.As(err, &verr):
		writeMessage(w, http.StatusBadRequest, verr.Reason)
	case errors.As(err, &breq):
		writeMessage(w, http.StatusBadRequest, breq.msg)
	case errors.Is(err, storage.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, storage.ErrConflict):
		writeMessage(w, http.StatusConflict, "Expense was modified by another request")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body.
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
