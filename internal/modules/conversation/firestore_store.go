package conversation

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tripdesk/internal/types"
)

// DefaultCollection holds one document per user, keyed by the transport user id.
const DefaultCollection = "users"

// FirestoreStore keeps each Record as a document with state, history and
// profile members. Writes use MergeAll so concurrent partial updates from
// different writers do not clobber unrelated members.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreStore{client: client, collection: collection}
}

func (s *FirestoreStore) GetRecord(ctx context.Context, userID types.ID) (*Record, error) {
	snap, err := s.client.Collection(s.collection).Doc(string(userID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get %s: %w", userID, err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	return recordFromDocument(snap.Data()), nil
}

func (s *FirestoreStore) PutRecord(ctx context.Context, userID types.ID, u Update) error {
	doc := u.document()
	if len(doc) == 0 {
		return nil
	}
	_, err := s.client.Collection(s.collection).Doc(string(userID)).Set(ctx, doc, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore set %s: %w", userID, err)
	}
	return nil
}
