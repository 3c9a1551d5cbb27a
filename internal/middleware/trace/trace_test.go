package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

func TestMiddlewareRequestIDAndObserve(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Format: "json"})

	var gotMethod, gotPattern string
	var gotStatus int
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger,
		func(method, pattern string, status int, _ time.Duration) {
			gotMethod, gotPattern, gotStatus = method, pattern, status
		})

	var seenID string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})
	h := m.Middleware(mux)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rr.Code)
	}
	id := rr.Header().Get(HeaderRequestID)
	if !strings.HasPrefix(id, "req_") || id != seenID {
		t.Fatalf("request id header %q, handler saw %q", id, seenID)
	}
	if gotMethod != http.MethodGet || gotPattern != "GET /items/{id}" || gotStatus != http.StatusTeapot {
		t.Fatalf("observe got %s %q %d", gotMethod, gotPattern, gotStatus)
	}
	if !strings.Contains(buf.String(), `"request_id":"`+id+`"`) {
		t.Fatalf("request id missing from logs: %s", buf.String())
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil, nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "bad id with spaces")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); got == "bad id with spaces" {
		t.Fatal("invalid incoming id must be replaced")
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	if got := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Fatalf("got %q", got)
	}
}
