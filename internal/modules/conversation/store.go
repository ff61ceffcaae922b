package conversation

import (
	"context"
	"errors"
	"sync"

	"tripdesk/internal/types"
)

var ErrNotFound = errors.New("conversation not found")

// Store persists one Record per user. PutRecord merges: slots in Update.State
// that are set overwrite stored ones, Profile keys merge, and History replaces
// the stored log when non-nil.
type Store interface {
	GetRecord(ctx context.Context, userID types.ID) (*Record, error)
	PutRecord(ctx context.Context, userID types.ID, u Update) error
}

// document is the wire shape shared by the Firestore and Postgres stores.
// Empty state and profile maps are left out: under a merge write an empty
// map would replace the stored one instead of merging into it.
func (u Update) document() map[string]any {
	doc := map[string]any{}
	if u.State != nil {
		if m := Serialize(*u.State); len(m) > 0 {
			doc["state"] = toAny(m)
		}
	}
	if u.History != nil {
		doc["history"] = encodeHistory(*u.History)
	}
	if len(u.Profile) > 0 {
		doc["profile"] = toAny(u.Profile)
	}
	return doc
}

func toAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// recordFromDocument tolerates missing or mistyped members.
func recordFromDocument(doc map[string]any) *Record {
	rec := &Record{Profile: Profile{}}
	if st, ok := doc["state"].(map[string]any); ok {
		rec.State = stateFromFields(st)
	}
	rec.History = decodeHistory(doc["history"])
	if p, ok := doc["profile"].(map[string]any); ok {
		for k, v := range p {
			if s, ok := v.(string); ok {
				rec.Profile[k] = s
			}
		}
	}
	return rec
}

// MemoryStore keeps records in process. Used by tests and when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[types.ID]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[types.ID]*Record)}
}

func (m *MemoryStore) GetRecord(_ context.Context, userID types.ID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) PutRecord(_ context.Context, userID types.ID, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		rec = &Record{Profile: Profile{}}
		m.records[userID] = rec
	}
	if u.State != nil {
		merged := Serialize(rec.State)
		for k, v := range Serialize(*u.State) {
			merged[k] = v
		}
		rec.State = Deserialize(merged)
	}
	if u.History != nil {
		rec.History = append(History(nil), (*u.History)...)
	}
	for k, v := range u.Profile {
		rec.Profile[k] = v
	}
	return nil
}

func cloneRecord(r *Record) *Record {
	out := &Record{
		State:   r.State,
		History: append(History(nil), r.History...),
		Profile: make(Profile, len(r.Profile)),
	}
	for k, v := range r.Profile {
		out.Profile[k] = v
	}
	return out
}
