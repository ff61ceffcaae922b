package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/infra"
	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/modules/extract"
	"tripdesk/internal/modules/search"
	"tripdesk/internal/service"
	"tripdesk/internal/slack"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(slack.Envelope) bool { return false }

type denyVerifier struct{}

func (denyVerifier) VerifyIDToken(context.Context, string) (*infra.FirebaseToken, error) {
	return nil, io.EOF
}

func newTestServer(verifier infra.TokenVerifier) http.Handler {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	intake := service.NewIntakeService(service.Deps{
		Store:  conversation.NewMemoryStore(),
		Logger: logger,
	})
	return NewServer(ServerDeps{
		Intake:    intake,
		Slack:     nopDispatcher{},
		Search:    search.NewClient("", logger),
		Extractor: extract.New(),
		Verifier:  verifier,
		Logger:    logger,
	}).Routes()
}

func TestRoutes_Health(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("health = %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("logging middleware not installed")
	}
}

func TestRoutes_ChatWithoutResponderApologizes(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"user_id":"U1","message":"hola"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestServer(nil).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), service.Apology) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRoutes_SearchDisabled(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search/flights", strings.NewReader(`{"origin":"MEX","destination":"CUN","date":"2024-09-01"}`))
	req.Header.Set("Content-Type", "application/json")
	newTestServer(nil).ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRoutes_APIGuardedWhenVerifierSet(t *testing.T) {
	h := newTestServer(denyVerifier{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversations/U1", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health should stay open, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{"type":"url_verification","challenge":"c"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("slack events use signatures, not tokens; got %d", w.Code)
	}
}
