// README: Publishes travel request lifecycle events to NATS for the approval workflow.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/types"
)

// SubjectRequestReady carries requests whose required slots are all set.
const SubjectRequestReady = "travel.request.ready"

// RequestReady is the payload of SubjectRequestReady.
type RequestReady struct {
	UserID  string            `json:"user_id"`
	State   map[string]string `json:"state"`
	Profile map[string]string `json:"profile,omitempty"`
	ReadyAt time.Time         `json:"ready_at"`
}

// Conn is the subset of *nats.Conn used here.
type Conn interface {
	Publish(subject string, data []byte) error
}

type Publisher struct {
	conn   Conn
	now    func() time.Time
	logger *slog.Logger
}

func NewPublisher(conn Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, now: time.Now, logger: logger}
}

// RequestReady announces that userID's request can move to search and approval.
func (p *Publisher) RequestReady(_ context.Context, userID types.ID, state conversation.State, profile conversation.Profile) error {
	payload, err := json.Marshal(RequestReady{
		UserID:  string(userID),
		State:   conversation.Serialize(state),
		Profile: profile,
		ReadyAt: p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := p.conn.Publish(SubjectRequestReady, payload); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectRequestReady, err)
	}
	p.logger.Info("request ready published", "user_id", userID)
	return nil
}
