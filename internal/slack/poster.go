package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIBase = "https://slack.com/api"

// Poster calls the Slack Web API with a bot token.
type Poster struct {
	token   string
	client  *http.Client
	logger  *slog.Logger
	apiBase string
}

func NewPoster(token string, logger *slog.Logger) *Poster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poster{
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiBase: defaultAPIBase,
		logger:  logger,
	}
}

type apiResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	TS     string `json:"ts,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// PostMessage posts mrkdwn text to channel, threaded under threadTS when set.
// It returns the new message's ts.
func (p *Poster) PostMessage(ctx context.Context, channel, threadTS, text string) (string, error) {
	payload := map[string]any{
		"channel": channel,
		"text":    text,
		"mrkdwn":  true,
	}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	resp, err := p.call(ctx, "chat.postMessage", payload)
	if err != nil {
		return "", err
	}
	p.logger.Debug("posted slack message", "channel", channel, "ts", resp.TS)
	return resp.TS, nil
}

// AuthTest returns the bot's own user id.
func (p *Poster) AuthTest(ctx context.Context) (string, error) {
	resp, err := p.call(ctx, "auth.test", map[string]any{})
	if err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (p *Poster) call(ctx context.Context, method string, payload map[string]any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var out apiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse slack response: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("slack %s error: %s", method, out.Error)
	}
	return &out, nil
}
