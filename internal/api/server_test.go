package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
	"github.com/MikeSquared-Agency/sherpa/internal/gateway"
)

type fakeGateway struct {
	ask      func(ctx context.Context, prompt string) (*gateway.Response, error)
	feedback func(ctx context.Context, feedback, hypothesis string) (*gateway.Response, error)
}

func (f *fakeGateway) Ask(ctx context.Context, prompt string) (*gateway.Response, error) {
	if f.ask == nil {
		return nil, errors.New("ask unavailable")
	}
	return f.ask(ctx, prompt)
}

func (f *fakeGateway) Feedback(ctx context.Context, feedback, hypothesis string) (*gateway.Response, error) {
	if f.feedback == nil {
		return nil, errors.New("feedback unavailable")
	}
	return f.feedback(ctx, feedback, hypothesis)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, gw conversation.Gateway) *Server {
	t.Helper()
	sessions := NewSessions(func() *conversation.Controller {
		return conversation.New(gw, discardLogger())
	}, 30*time.Minute)
	srv := NewServer(8760, sessions, discardLogger())
	srv.dispatch = func(f func()) { f() }
	t.Cleanup(sessions.CloseAll)
	return srv
}

func serve(srv *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func sessionCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("expected a session cookie")
	return nil
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})

	w := serve(srv, "GET", "/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})
	serve(srv, "GET", "/api/v1/conversation", "", nil)

	w := serve(srv, "GET", "/api/v1/sherpa/status", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "sherpa" {
		t.Errorf("expected agent sherpa, got %v", body["agent"])
	}
	if body["sessions"] != float64(1) {
		t.Errorf("expected 1 session, got %v", body["sessions"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})

	w := serve(srv, "GET", "/metrics", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "sherpa_sessions_active") {
		t.Error("expected sherpa metrics in exposition")
	}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})

	w := serve(srv, "GET", "/", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "The First Sherpa*AI") {
		t.Error("expected page title in body")
	}
}

func TestIndexPage_OpensNoSession(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})

	for i := 0; i < 100; i++ {
		w := serve(srv, "GET", "/", "", nil)
		if len(w.Result().Cookies()) != 0 {
			t.Fatal("expected no session cookie from the page")
		}
	}
	if n := srv.sessions.Len(); n != 0 {
		t.Errorf("expected no sessions, got %d", n)
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeGateway{})

	w := serve(srv, "GET", "/nonexistent", "", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
