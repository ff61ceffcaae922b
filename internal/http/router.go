// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/http/middleware"
)

func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(s.logger), middleware.Recovery(s.logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	if s.slack != nil {
		r.POST("/slack/events", s.slack.Events)
	}

	api := r.Group("/api")
	if s.verifier != nil {
		api.Use(middleware.Auth(s.verifier))
	}
	api.POST("/chat", s.chat.Chat)
	api.GET("/conversations/:user_id", s.chat.Get)
	api.POST("/search/flights", s.search.Flights)
	api.POST("/search/hotels", s.search.Hotels)
	api.POST("/search/flights/params", s.search.FlightParams)

	return r
}
