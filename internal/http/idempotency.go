package http

import (
	"net/http"

	"cinecalc/internal/core"
)

const (
	headerIdempotencyKey   = "Idempotency-Key"
	headerIdempotentReplay = "Idempotent-Replayed"
	maxIdempotencyKeyLen   = 255
)

// idempotentResult is the remembered outcome of a create.
type idempotentResult struct {
	fingerprint string
	expense     core.Expense
}

// fingerprint identifies the normalized request so a reused key with a
// different body can be told apart from a retry.
func fingerprint(in core.ExpenseInput) string {
	n := in.Normalized()
	return n.Name + "\x00" + n.Price.StringFixed(core.Scale) + "\x00" + n.PercentageMarkup.StringFixed(core.Scale)
}

// createIdempotent runs create at most once per key within the TTL. A retry
// with the same key and body gets the first response again.
func (s *Server) createIdempotent(w http.ResponseWriter, r *http.Request, key string, in core.ExpenseInput) {
	if len(key) > maxIdempotencyKeyLen {
		writeMessage(w, http.StatusBadRequest, "Idempotency-Key is too long")
		return
	}
	fp := fingerprint(in)

	if prev, ok := s.idempotent.Get(key); ok {
		s.replay(w, r, prev, fp)
		return
	}
	if !s.inflight.Add(key, struct{}{}) {
		writeMessage(w, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
		return
	}
	defer s.inflight.Delete(key)

	// A request that finished between the lookup and the claim.
	if prev, ok := s.idempotent.Get(key); ok {
		s.replay(w, r, prev, fp)
		return
	}

	e, err := s.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.idempotent.Set(key, idempotentResult{fingerprint: fp, expense: e})
	s.writeCreated(w, r, e)
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, prev idempotentResult, fp string) {
	if prev.fingerprint != fp {
		writeMessage(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request")
		return
	}
	s.metrics.IdempotentReplay()
	w.Header().Set(headerIdempotentReplay, "true")
	s.writeCreated(w, r, prev.expense)
}
