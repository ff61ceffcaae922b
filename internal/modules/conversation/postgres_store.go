package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tripdesk/internal/types"
)

// PostgresStore keeps records in the conversations table (see migrations).
// state and profile merge with jsonb ||; history is replaced when provided.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetRecord(ctx context.Context, userID types.ID) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT state, history, profile
		FROM conversations
		WHERE user_id = $1`, string(userID),
	)

	var stateRaw, historyRaw, profileRaw []byte
	err := row.Scan(&stateRaw, &historyRaw, &profileRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation %s: %w", userID, err)
	}

	doc := map[string]any{}
	for key, raw := range map[string][]byte{"state": stateRaw, "history": historyRaw, "profile": profileRaw} {
		var v any
		if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
			continue
		}
		doc[key] = v
	}
	return recordFromDocument(doc), nil
}

func (s *PostgresStore) PutRecord(ctx context.Context, userID types.ID, u Update) error {
	doc := u.document()
	if len(doc) == 0 {
		return nil
	}
	stateArg, err := jsonArg(doc["state"])
	if err != nil {
		return err
	}
	historyArg, err := jsonArg(doc["history"])
	if err != nil {
		return err
	}
	profileArg, err := jsonArg(doc["profile"])
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO conversations (user_id, state, history, profile, updated_at)
		VALUES ($1, COALESCE($2::jsonb, '{}'::jsonb), COALESCE($3::jsonb, '[]'::jsonb), COALESCE($4::jsonb, '{}'::jsonb), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			state = conversations.state || COALESCE($2::jsonb, '{}'::jsonb),
			history = COALESCE($3::jsonb, conversations.history),
			profile = conversations.profile || COALESCE($4::jsonb, '{}'::jsonb),
			updated_at = NOW()`,
		string(userID), stateArg, historyArg, profileArg,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation %s: %w", userID, err)
	}
	return nil
}

// jsonArg encodes v for a ::jsonb parameter; nil stays SQL NULL.
func jsonArg(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode conversation field: %w", err)
	}
	s := string(b)
	return &s, nil
}
