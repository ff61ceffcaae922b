// README: Slack Events API endpoint; acknowledges at once and hands events off.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/slack"
)

const maxSlackBody = 1 << 20

// Dispatcher schedules an event for background processing.
type Dispatcher interface {
	Dispatch(env slack.Envelope) bool
}

type SlackHandler struct {
	dispatcher    Dispatcher
	signingSecret string
	now           func() time.Time
	logger        *slog.Logger
}

func NewSlackHandler(d Dispatcher, signingSecret string, logger *slog.Logger) *SlackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if signingSecret == "" {
		logger.Warn("SLACK_SIGNING_SECRET not set; request signatures are not checked")
	}
	return &SlackHandler{dispatcher: d, signingSecret: signingSecret, now: time.Now, logger: logger}
}

// Events handles POST /slack/events.
func (h *SlackHandler) Events(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSlackBody))
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable body")
		return
	}
	if err := slack.VerifySignature(h.signingSecret, c.Request.Header, body, h.now()); err != nil {
		h.logger.Warn("rejected slack request", "error", err)
		status := http.StatusUnauthorized
		if errors.Is(err, slack.ErrStaleRequest) {
			status = http.StatusBadRequest
		}
		writeError(c, status, "invalid signature")
		return
	}

	var env slack.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if env.IsURLVerification() {
		writeJSON(c, http.StatusOK, gin.H{"challenge": env.Challenge})
		return
	}

	scheduled := h.dispatcher.Dispatch(env)
	h.logger.Debug("slack event received",
		"event_id", env.EventID,
		"type", env.Event.Type,
		"scheduled", scheduled,
		"retry", c.GetHeader("X-Slack-Retry-Num"),
	)
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}
