package slack

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"tripdesk/internal/types"
)

// Welcome is posted when a user opens an assistant thread.
const Welcome = "Hola 👋 Soy tu asistente de viajes. Escríbeme cualquier pregunta."

const (
	typeURLVerification = "url_verification"
	typeEventCallback   = "event_callback"

	eventMessage       = "message"
	eventAppMention    = "app_mention"
	eventThreadStarted = "assistant_thread_started"
	subtypeBotMessage  = "bot_message"
	channelTypeIM      = "im"
	channelTypeAppHome = "app_home"
	sentKeyPrefix      = "sent:"
	defaultTurnTimeout = 60 * time.Second
	defaultMaxInflight = 16
)

// Envelope is the outer body of an Events API request.
type Envelope struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Event     Event  `json:"event"`
}

func (e Envelope) IsURLVerification() bool { return e.Type == typeURLVerification }

// Event is the subset of an inner event we act on.
type Event struct {
	Type            string          `json:"type"`
	Subtype         string          `json:"subtype,omitempty"`
	User            string          `json:"user,omitempty"`
	BotID           string          `json:"bot_id,omitempty"`
	Text            string          `json:"text,omitempty"`
	Channel         string          `json:"channel,omitempty"`
	ChannelType     string          `json:"channel_type,omitempty"`
	TS              string          `json:"ts,omitempty"`
	ThreadTS        string          `json:"thread_ts,omitempty"`
	ClientMsgID     string          `json:"client_msg_id,omitempty"`
	AssistantThread AssistantThread `json:"assistant_thread"`
}

type AssistantThread struct {
	UserID    string `json:"user_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	ThreadTS  string `json:"thread_ts,omitempty"`
}

// Action is what the app does with an event.
type Action int

const (
	ActionIgnore Action = iota
	ActionWelcome
	ActionTurn
)

func (a Action) String() string {
	switch a {
	case ActionWelcome:
		return "welcome"
	case ActionTurn:
		return "turn"
	default:
		return "ignore"
	}
}

// Classify decides how to handle ev. Messages from bots, including our own,
// are always ignored.
func Classify(ev Event, botUserID string) Action {
	if ev.BotID != "" || ev.Subtype == subtypeBotMessage {
		return ActionIgnore
	}
	if botUserID != "" && ev.User == botUserID {
		return ActionIgnore
	}
	switch ev.Type {
	case eventThreadStarted:
		return ActionWelcome
	case eventAppMention:
		if ev.User == "" {
			return ActionIgnore
		}
		return ActionTurn
	case eventMessage:
		if ev.Subtype != "" || ev.User == "" {
			return ActionIgnore
		}
		if strings.HasPrefix(ev.Channel, "D") || ev.ChannelType == channelTypeIM || ev.ChannelType == channelTypeAppHome {
			return ActionTurn
		}
	}
	return ActionIgnore
}

var mentionRe = regexp.MustCompile(`<@[A-Z0-9]+(?:\|[^>]*)?>`)

// StripMentions removes <@U123> tokens and trims the result.
func StripMentions(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}

// replyTarget returns the channel and thread a reply to ev belongs in.
func replyTarget(ev Event) (string, string) {
	channel := ev.Channel
	if channel == "" {
		channel = ev.AssistantThread.ChannelID
	}
	thread := ev.ThreadTS
	if thread == "" {
		thread = ev.AssistantThread.ThreadTS
	}
	if thread == "" {
		thread = ev.TS
	}
	return channel, thread
}

// TurnHandler runs one conversation turn and returns the reply text.
type TurnHandler interface {
	HandleMessage(ctx context.Context, userID types.ID, text string) string
}

// Messenger posts replies back to Slack.
type Messenger interface {
	PostMessage(ctx context.Context, channel, threadTS, text string) (string, error)
}

// Config tunes an App.
type Config struct {
	BotUserID   string
	TurnTimeout time.Duration
	MaxInflight int64
}

// App routes callback events to the turn handler off the request path.
type App struct {
	turns     TurnHandler
	messenger Messenger
	dedup     Deduper
	logger    *slog.Logger

	botUserID   string
	turnTimeout time.Duration
	sem         *semaphore.Weighted
	wg          sync.WaitGroup
}

func NewApp(turns TurnHandler, messenger Messenger, dedup Deduper, cfg Config, logger *slog.Logger) *App {
	if dedup == nil {
		dedup = NewMemoryDeduper(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}
	if cfg.MaxInflight <= 0 {
		cfg.MaxInflight = defaultMaxInflight
	}
	return &App{
		turns:       turns,
		messenger:   messenger,
		dedup:       dedup,
		logger:      logger,
		botUserID:   cfg.BotUserID,
		turnTimeout: cfg.TurnTimeout,
		sem:         semaphore.NewWeighted(cfg.MaxInflight),
	}
}

// Dispatch classifies env and, if it needs work, processes it in the
// background. It never blocks on the turn itself and reports whether work
// was scheduled.
func (a *App) Dispatch(env Envelope) bool {
	if env.Type != typeEventCallback {
		return false
	}
	ev := env.Event
	action := Classify(ev, a.botUserID)
	if action == ActionIgnore {
		return false
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.turnTimeout)
		defer cancel()

		if !a.firstDelivery(ctx, env) {
			return
		}
		if err := a.sem.Acquire(ctx, 1); err != nil {
			a.logger.Warn("slack event dropped, too many in flight", "event_id", env.EventID)
			return
		}
		defer a.sem.Release(1)
		a.process(ctx, action, ev)
	}()
	return true
}

// Wait blocks until scheduled events finish.
func (a *App) Wait() { a.wg.Wait() }

func (a *App) firstDelivery(ctx context.Context, env Envelope) bool {
	ev := env.Event
	if ev.TS != "" {
		// Our own posts can come back as events when bot_id is missing.
		if seen, err := a.dedup.FirstSeen(ctx, sentKeyPrefix+ev.TS); err == nil && !seen {
			return false
		}
	}
	key := env.EventID
	if key == "" {
		key = ev.Type + ":" + ev.Channel + ":" + ev.TS
	}
	first, err := a.dedup.FirstSeen(ctx, key)
	if err != nil {
		a.logger.Warn("dedup check failed", "key", key, "error", err)
		return true
	}
	if !first {
		a.logger.Debug("duplicate slack delivery", "key", key)
	}
	return first
}

func (a *App) process(ctx context.Context, action Action, ev Event) {
	channel, thread := replyTarget(ev)
	var reply string
	switch action {
	case ActionWelcome:
		reply = Welcome
	case ActionTurn:
		text := ev.Text
		if ev.Type == eventAppMention {
			text = StripMentions(text)
		}
		reply = a.turns.HandleMessage(ctx, types.ID(ev.User), text)
	}
	if reply == "" || channel == "" {
		return
	}

	ts, err := a.messenger.PostMessage(ctx, channel, thread, reply)
	if err != nil {
		a.logger.Error("slack post failed", "channel", channel, "action", action.String(), "error", err)
		return
	}
	if ts != "" {
		if _, err := a.dedup.FirstSeen(ctx, sentKeyPrefix+ts); err != nil {
			a.logger.Debug("record sent ts", "error", err)
		}
	}
	a.logger.Info("slack reply sent", "channel", channel, "user_id", ev.User, "action", action.String())
}
