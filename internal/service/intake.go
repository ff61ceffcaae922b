// README: Turn orchestration for the travel intake assistant.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tripdesk/internal/ai"
	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/modules/directory"
	"tripdesk/internal/modules/extract"
	"tripdesk/internal/modules/userlock"
	"tripdesk/internal/types"
)

// Directory supplies profile fields for users with no stored record.
type Directory interface {
	GetProfile(ctx context.Context, userID types.ID) (conversation.Profile, error)
}

// Extractor pulls structured fields out of one message.
type Extractor interface {
	Extract(ctx context.Context, text string) extract.Result
}

// ReadyNotifier is told when a conversation first has every required slot.
type ReadyNotifier interface {
	RequestReady(ctx context.Context, userID types.ID, state conversation.State, profile conversation.Profile) error
}

// Deps wires an IntakeService. Directory, Notifier and Logger are optional;
// a nil Store or Locker falls back to the in-memory implementation.
type Deps struct {
	Store     conversation.Store
	Directory Directory
	Responder ai.Responder
	Extractor Extractor
	Locker    userlock.Locker
	Notifier  ReadyNotifier
	Logger    *slog.Logger
}

// IntakeService runs one conversation turn at a time per user. It holds no
// conversation state of its own between turns.
type IntakeService struct {
	store     conversation.Store
	directory Directory
	responder ai.Responder
	extractor Extractor
	locker    userlock.Locker
	notifier  ReadyNotifier
	logger    *slog.Logger
}

func NewIntakeService(d Deps) *IntakeService {
	s := &IntakeService{
		store:     d.Store,
		directory: d.Directory,
		responder: d.Responder,
		extractor: d.Extractor,
		locker:    d.Locker,
		notifier:  d.Notifier,
		logger:    d.Logger,
	}
	if s.store == nil {
		s.store = conversation.NewMemoryStore()
	}
	if s.locker == nil {
		s.locker = userlock.NewKeyedMutex()
	}
	if s.extractor == nil {
		s.extractor = extract.New()
	}
	if s.responder == nil {
		s.responder = ai.Chain{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// HandleMessage runs one turn and returns the reply. Any failure yields Apology.
func (s *IntakeService) HandleMessage(ctx context.Context, userID types.ID, text string) string {
	log := s.logger.With("user_id", userID)
	if userID == "" {
		log.Warn("turn without user id")
		return Apology
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		log.Error("acquire user lock", "error", err)
		return Apology
	}
	defer unlock()

	rec := s.load(ctx, userID, log)
	wasComplete := rec.State.Complete()

	history := rec.History.Append(conversation.SpeakerUser, text)
	rec.State.Merge(s.extractor.Extract(ctx, text))
	prompt := BuildPrompt(rec.State, rec.Profile, rec.History, text)

	reply, err := s.responder.Respond(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		log.Error("responder failed", "error", err)
		s.persist(ctx, userID, rec.State, history.Truncate(conversation.MaxHistory), log)
		s.notifyIfReady(ctx, userID, wasComplete, rec, log)
		return Apology
	}

	history = history.Append(conversation.SpeakerBot, reply).Truncate(conversation.MaxHistory)
	s.persist(ctx, userID, rec.State, history, log)
	s.notifyIfReady(ctx, userID, wasComplete, rec, log)
	return reply
}

// notifyIfReady publishes once, on the turn whose merge completed the
// required slots. The persisted state is complete from then on, so a turn
// that skipped it would never publish.
func (s *IntakeService) notifyIfReady(ctx context.Context, userID types.ID, wasComplete bool, rec *conversation.Record, log *slog.Logger) {
	if wasComplete || !rec.State.Complete() || s.notifier == nil {
		return
	}
	if err := s.notifier.RequestReady(ctx, userID, rec.State, rec.Profile); err != nil {
		log.Warn("ready notification failed", "error", err)
	}
}

// Conversation returns the stored record for userID.
func (s *IntakeService) Conversation(ctx context.Context, userID types.ID) (*conversation.Record, error) {
	return s.store.GetRecord(ctx, userID)
}

// load never fails: a read error starts a fresh conversation, and a missing
// record is backfilled once from the directory.
func (s *IntakeService) load(ctx context.Context, userID types.ID, log *slog.Logger) *conversation.Record {
	rec, err := s.store.GetRecord(ctx, userID)
	if err == nil {
		if rec.Profile == nil {
			rec.Profile = conversation.Profile{}
		}
		return rec
	}
	if !errors.Is(err, conversation.ErrNotFound) {
		log.Warn("load conversation, starting fresh", "error", err)
		return &conversation.Record{Profile: conversation.Profile{}}
	}

	rec = &conversation.Record{Profile: conversation.Profile{}}
	if s.directory != nil {
		p, err := s.directory.GetProfile(ctx, userID)
		switch {
		case errors.Is(err, directory.ErrNotFound):
			log.Info("user not in directory")
		case err != nil:
			log.Warn("directory lookup failed", "error", err)
		case len(p) > 0:
			rec.Profile = p
		}
	}
	empty := conversation.History{}
	if err := s.store.PutRecord(ctx, userID, conversation.Update{History: &empty, Profile: rec.Profile}); err != nil {
		log.Warn("persist baseline", "error", err)
	}
	return rec
}

func (s *IntakeService) persist(ctx context.Context, userID types.ID, state conversation.State, history conversation.History, log *slog.Logger) {
	err := s.store.PutRecord(ctx, userID, conversation.Update{State: &state, History: &history})
	if err != nil {
		log.Error("persist conversation", "error", err)
	}
}
