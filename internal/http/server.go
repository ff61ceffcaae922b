// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"tripdesk/internal/http/handlers"
	"tripdesk/internal/infra"
	"tripdesk/internal/modules/search"
)

type ServerDeps struct {
	Intake        handlers.Intake
	Slack         handlers.Dispatcher
	SigningSecret string
	Search        handlers.Searcher
	Extractor     handlers.Extractor
	Estimator     search.TravelEstimator
	// Verifier guards /api routes when set.
	Verifier    infra.TokenVerifier
	TurnTimeout time.Duration
	Logger      *slog.Logger
}

type Server struct {
	chat   *handlers.ChatHandler
	search *handlers.SearchHandler
	slack  *handlers.SlackHandler

	verifier infra.TokenVerifier
	logger   *slog.Logger
}

func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		chat:     handlers.NewChatHandler(deps.Intake, deps.TurnTimeout),
		search:   handlers.NewSearchHandler(deps.Search, deps.Extractor, deps.Estimator, logger),
		verifier: deps.Verifier,
		logger:   logger,
	}
	if deps.Slack != nil {
		s.slack = handlers.NewSlackHandler(deps.Slack, deps.SigningSecret, logger)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	return NewRouter(s)
}
