// README: Handler tests over gin with stubbed services.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/http/handlers"
	httpmiddleware "tripdesk/internal/http/middleware"
	"tripdesk/internal/infra"
	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/modules/extract"
	"tripdesk/internal/modules/search"
	"tripdesk/internal/slack"
	"tripdesk/internal/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubIntake struct {
	lastUser types.ID
	lastText string
	records  map[types.ID]*conversation.Record
}

func (s *stubIntake) HandleMessage(_ context.Context, userID types.ID, text string) string {
	s.lastUser, s.lastText = userID, text
	return "¿A dónde viajas?"
}

func (s *stubIntake) Conversation(_ context.Context, userID types.ID) (*conversation.Record, error) {
	if rec, ok := s.records[userID]; ok {
		return rec, nil
	}
	return nil, conversation.ErrNotFound
}

type stubTokenVerifier struct {
	token *infra.FirebaseToken
	err   error
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, _ string) (*infra.FirebaseToken, error) {
	return s.token, s.err
}

type stubSearcher struct {
	err     error
	params  map[string]string
	flights []search.Result
	hotels  []search.Result
}

func (s *stubSearcher) Search(_ context.Context, params map[string]string) (map[string]any, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return map[string]any{"best_flights": []any{}}, nil
}

func (s *stubSearcher) SearchFlights(context.Context, string, string, string) ([]search.Result, error) {
	return s.flights, s.err
}

func (s *stubSearcher) SearchHotels(context.Context, string, string, string) ([]search.Result, error) {
	return s.hotels, s.err
}

type stubExtractor struct{ result extract.Result }

func (s stubExtractor) Extract(context.Context, string) extract.Result { return s.result }

type stubEstimator struct{}

func (stubEstimator) TravelEstimate(context.Context, string, string) (time.Duration, string, error) {
	return 12 * time.Minute, "5.1 km", nil
}

type stubDispatcher struct{ got []slack.Envelope }

func (s *stubDispatcher) Dispatch(env slack.Envelope) bool {
	s.got = append(s.got, env)
	return true
}

func doRequest(r http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func chatRouter(intake handlers.Intake, verifier infra.TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	if verifier != nil {
		api.Use(httpmiddleware.Auth(verifier))
	}
	h := handlers.NewChatHandler(intake, time.Second)
	api.POST("/chat", h.Chat)
	api.GET("/conversations/:user_id", h.Get)
	return r
}

func TestChat(t *testing.T) {
	tests := []struct {
		name string
		body any
		want int
	}{
		{"ok", map[string]string{"user_id": "U123", "message": "quiero ir a Cancún"}, http.StatusOK},
		{"missing message", map[string]string{"user_id": "U123", "message": "  "}, http.StatusBadRequest},
		{"missing user", map[string]string{"message": "hola"}, http.StatusBadRequest},
		{"bad user id", map[string]string{"user_id": "U1/../x", "message": "hola"}, http.StatusBadRequest},
		{"invalid json", []byte("{"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intake := &stubIntake{}
			w := doRequest(chatRouter(intake, nil), http.MethodPost, "/api/chat", tt.body, nil)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, w.Code, w.Body.String())
			}
			if tt.want == http.StatusOK && intake.lastText != "quiero ir a Cancún" {
				t.Errorf("message not forwarded: %q", intake.lastText)
			}
		})
	}
}

func TestChat_AuthenticatedCallerOverridesUserID(t *testing.T) {
	intake := &stubIntake{}
	verifier := &stubTokenVerifier{token: &infra.FirebaseToken{UID: "fbUser1", Claims: map[string]interface{}{}}}
	w := doRequest(chatRouter(intake, verifier), http.MethodPost, "/api/chat",
		map[string]string{"user_id": "someoneElse", "message": "hola"},
		http.Header{"Authorization": {"Bearer tok"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if intake.lastUser != "fbUser1" {
		t.Errorf("turn ran as %q, want caller uid", intake.lastUser)
	}
}

func TestChat_Unauthenticated(t *testing.T) {
	verifier := &stubTokenVerifier{err: errors.New("expired")}
	w := doRequest(chatRouter(&stubIntake{}, verifier), http.MethodPost, "/api/chat",
		map[string]string{"user_id": "U1", "message": "hola"},
		http.Header{"Authorization": {"Bearer bad"}})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestGetConversation(t *testing.T) {
	intake := &stubIntake{records: map[types.ID]*conversation.Record{
		"U1": {
			State:   conversation.State{Origin: "MEX", Destination: "CUN"},
			History: conversation.History{{Speaker: conversation.SpeakerUser, Text: "hola"}},
			Profile: conversation.Profile{"Nombre": "Ana"},
		},
	}}
	r := chatRouter(intake, nil)

	w := doRequest(r, http.MethodGet, "/api/conversations/U1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		State    map[string]string `json:"state"`
		Missing  []string          `json:"missing"`
		Complete bool              `json:"complete"`
		History  []map[string]any  `json:"history"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State["origin"] != "MEX" || resp.State["destination"] != "CUN" {
		t.Errorf("state = %v", resp.State)
	}
	if resp.Complete || len(resp.Missing) == 0 || resp.Missing[0] != "start_date" {
		t.Errorf("missing = %v complete = %v", resp.Missing, resp.Complete)
	}
	if len(resp.History) != 1 {
		t.Errorf("history = %v", resp.History)
	}

	if w := doRequest(r, http.MethodGet, "/api/conversations/U404", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetConversation_OtherCallerForbidden(t *testing.T) {
	verifier := &stubTokenVerifier{token: &infra.FirebaseToken{UID: "U2"}}
	w := doRequest(chatRouter(&stubIntake{}, verifier), http.MethodGet, "/api/conversations/U1", nil,
		http.Header{"Authorization": {"Bearer tok"}})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func searchRouter(s *stubSearcher, e handlers.Extractor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handlers.NewSearchHandler(s, e, stubEstimator{}, quiet)
	r.POST("/api/search/flights", h.Flights)
	r.POST("/api/search/hotels", h.Hotels)
	r.POST("/api/search/flights/params", h.FlightParams)
	return r
}

func TestSearchFlights(t *testing.T) {
	s := &stubSearcher{flights: []search.Result{{"price": 120.0}}}
	r := searchRouter(s, stubExtractor{})

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"ok lowercase codes", map[string]string{"origin": "mex", "destination": "cun", "date": "2024-09-01"}, http.StatusOK},
		{"bad code", map[string]string{"origin": "Mexico", "destination": "CUN", "date": "2024-09-01"}, http.StatusBadRequest},
		{"bad date", map[string]string{"origin": "MEX", "destination": "CUN", "date": "01/09/2024"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/api/search/flights", tt.body, nil)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestSearchErrors(t *testing.T) {
	body := map[string]string{"origin": "MEX", "destination": "CUN", "date": "2024-09-01"}

	w := doRequest(searchRouter(&stubSearcher{err: search.ErrDisabled}, stubExtractor{}), http.MethodPost, "/api/search/flights", body, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled: expected 503, got %d", w.Code)
	}
	w = doRequest(searchRouter(&stubSearcher{err: errors.New("boom")}, stubExtractor{}), http.MethodPost, "/api/search/flights", body, nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("upstream: expected 502, got %d", w.Code)
	}
}

func TestSearchHotels_AnnotatesVenue(t *testing.T) {
	s := &stubSearcher{hotels: []search.Result{{"name": "Hotel Centro"}}}
	w := doRequest(searchRouter(s, stubExtractor{}), http.MethodPost, "/api/search/hotels", map[string]string{
		"city": "Monterrey", "check_in": "2024-09-01", "check_out": "2024-09-03", "venue": "Cintermex",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Results []map[string]any `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0]["venue_drive_minutes"] != 12.0 {
		t.Errorf("results = %v", resp.Results)
	}

	w = doRequest(searchRouter(s, stubExtractor{}), http.MethodPost, "/api/search/hotels", map[string]string{
		"city": "Monterrey", "check_in": "2024-09-03", "check_out": "2024-09-01",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("reversed dates: expected 400, got %d", w.Code)
	}
}

func TestFlightParams(t *testing.T) {
	s := &stubSearcher{}
	e := stubExtractor{result: extract.Result{
		Origin:      "MTY",
		Destination: "MEX",
		Dates:       extract.DateRange{Outbound: "2024-09-10", OneWay: true},
	}}
	r := searchRouter(s, e)

	w := doRequest(r, http.MethodPost, "/api/search/flights/params", map[string]any{"text": "de Monterrey a CDMX el 10"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Params map[string]string `json:"params"`
		Data   map[string]any    `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Params["departure_id"] != "MTY" || resp.Params["arrival_id"] != "MEX" {
		t.Errorf("params = %v", resp.Params)
	}
	if resp.Data != nil || s.params != nil {
		t.Errorf("search should not run without execute")
	}

	w = doRequest(r, http.MethodPost, "/api/search/flights/params", map[string]any{"text": "de Monterrey a CDMX", "execute": true}, nil)
	if w.Code != http.StatusOK || s.params == nil {
		t.Fatalf("execute: code %d, params %v", w.Code, s.params)
	}

	if w := doRequest(r, http.MethodPost, "/api/search/flights/params", map[string]any{"text": " "}, nil); w.Code != http.StatusBadRequest {
		t.Errorf("empty text: expected 400, got %d", w.Code)
	}
}

func slackRouter(d handlers.Dispatcher, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/slack/events", handlers.NewSlackHandler(d, secret, quiet).Events)
	return r
}

func signed(secret string, body []byte) http.Header {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	return http.Header{
		"X-Slack-Request-Timestamp": {ts},
		"X-Slack-Signature":         {slack.Sign(secret, ts, body)},
	}
}

func TestSlackEvents_URLVerification(t *testing.T) {
	d := &stubDispatcher{}
	body := []byte(`{"type":"url_verification","challenge":"abc123"}`)
	w := doRequest(slackRouter(d, "sec"), http.MethodPost, "/slack/events", body, signed("sec", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["challenge"] != "abc123" {
		t.Errorf("challenge = %q", resp["challenge"])
	}
	if len(d.got) != 0 {
		t.Errorf("verification must not be dispatched")
	}
}

func TestSlackEvents_DispatchesCallback(t *testing.T) {
	d := &stubDispatcher{}
	body := []byte(`{"type":"event_callback","event_id":"Ev1","event":{"type":"message","user":"U1","channel":"D1","text":"hola","ts":"1.0"}}`)
	w := doRequest(slackRouter(d, "sec"), http.MethodPost, "/slack/events", body, signed("sec", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(d.got) != 1 || d.got[0].Event.Text != "hola" || d.got[0].Event.Channel != "D1" {
		t.Errorf("dispatched = %+v", d.got)
	}
}

func TestSlackEvents_BadSignature(t *testing.T) {
	d := &stubDispatcher{}
	body := []byte(`{"type":"event_callback","event":{"type":"message"}}`)
	w := doRequest(slackRouter(d, "sec"), http.MethodPost, "/slack/events", body, signed("wrong", body))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if len(d.got) != 0 {
		t.Errorf("unsigned request dispatched")
	}
}

func TestSlackEvents_NoSecretSkipsVerification(t *testing.T) {
	d := &stubDispatcher{}
	body := []byte(`{"type":"event_callback","event":{"type":"app_mention","user":"U1","channel":"C1"}}`)
	w := doRequest(slackRouter(d, ""), http.MethodPost, "/slack/events", body, nil)
	if w.Code != http.StatusOK || len(d.got) != 1 {
		t.Errorf("code %d, dispatched %d", w.Code, len(d.got))
	}
}
