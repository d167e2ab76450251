package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	applog "cinecalc/internal/log"
)

type recorded struct {
	method, route string
	status        int
}

type fakeRecorder struct{ calls []recorded }

func (f *fakeRecorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, recorded{method, route, status})
}

func TestHandlerAssignsRequestID(t *testing.T) {
	rec := &fakeRecorder{}
	var seen string
	m := NewMiddleware(Config{
		Route:    func(*http.Request) string { return "/api/expenses/{id}" },
		Recorder: rec,
		Logger:   applog.Discard(),
	})
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/expenses/9", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("expected generated request id, got %q", seen)
	}
	if w.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header %q does not match context id %q", w.Header().Get(HeaderRequestID), seen)
	}
	if len(rec.calls) != 1 || rec.calls[0] != (recorded{http.MethodGet, "/api/expenses/{id}", http.StatusNotFound}) {
		t.Errorf("unexpected observations: %+v", rec.calls)
	}
}

func TestHandlerKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(Config{Logger: applog.Discard()})
	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "upstream-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "upstream-42" {
		t.Errorf("expected upstream id, got %q", seen)
	}
}

func TestResponseWriterRecordsFirstStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusOK {
		t.Errorf("status after implicit 200 should stay 200, got %d", rw.statusCode)
	}
}
