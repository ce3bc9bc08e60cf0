package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

// FirestoreStore persists sessions as Firestore documents, one per
// session id. Pending-state consumption runs inside a transaction so the
// compare-and-clear stays atomic across concurrent callback deliveries.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// Ensure FirestoreStore implements the store interface
var _ SessionStore = (*FirestoreStore)(nil)

type sessionDoc struct {
	ID           string           `firestore:"id"`
	User         *userDoc         `firestore:"user,omitempty"`
	Tokens       *tokenDoc        `firestore:"tokens,omitempty"`
	PendingState *pendingStateDoc `firestore:"pending_state,omitempty"`
	CreatedAt    time.Time        `firestore:"created_at"`
	ExpiresAt    time.Time        `firestore:"expires_at"`
}

type userDoc struct {
	ID                    string `firestore:"id"`
	Email                 string `firestore:"email"`
	Name                  string `firestore:"name"`
	CurrentOrganizationID string `firestore:"current_organization_id,omitempty"`
}

type tokenDoc struct {
	AccessToken  string    `firestore:"access_token"`
	RefreshToken string    `firestore:"refresh_token,omitempty"`
	IDToken      string    `firestore:"id_token,omitempty"`
	ExpiresAt    time.Time `firestore:"expires_at"`
}

type pendingStateDoc struct {
	State          string    `firestore:"state"`
	OrganizationID string    `firestore:"organization_id,omitempty"`
	CreatedAt      time.Time `firestore:"created_at"`
}

func toDoc(s *session.Session) *sessionDoc {
	doc := &sessionDoc{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
	if s.User != nil {
		doc.User = &userDoc{
			ID:                    s.User.ID,
			Email:                 s.User.Email,
			Name:                  s.User.Name,
			CurrentOrganizationID: s.User.CurrentOrganizationID,
		}
	}
	if s.Tokens != nil {
		doc.Tokens = &tokenDoc{
			AccessToken:  s.Tokens.AccessToken,
			RefreshToken: s.Tokens.RefreshToken,
			IDToken:      s.Tokens.IDToken,
			ExpiresAt:    s.Tokens.ExpiresAt,
		}
	}
	if s.PendingState != nil {
		doc.PendingState = &pendingStateDoc{
			State:          s.PendingState.State,
			OrganizationID: s.PendingState.OrganizationID,
			CreatedAt:      s.PendingState.CreatedAt,
		}
	}
	return doc
}

func fromDoc(doc *sessionDoc) *session.Session {
	s := &session.Session{
		ID:        doc.ID,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
	}
	if doc.User != nil {
		s.User = &session.User{
			ID:                    doc.User.ID,
			Email:                 doc.User.Email,
			Name:                  doc.User.Name,
			CurrentOrganizationID: doc.User.CurrentOrganizationID,
		}
	}
	if doc.Tokens != nil {
		s.Tokens = &session.TokenSet{
			AccessToken:  doc.Tokens.AccessToken,
			RefreshToken: doc.Tokens.RefreshToken,
			IDToken:      doc.Tokens.IDToken,
			ExpiresAt:    doc.Tokens.ExpiresAt,
		}
	}
	if doc.PendingState != nil {
		s.PendingState = &session.PendingState{
			State:          doc.PendingState.State,
			OrganizationID: doc.PendingState.OrganizationID,
			CreatedAt:      doc.PendingState.CreatedAt,
		}
	}
	return s
}

// NewFirestoreStore creates a Firestore-backed session store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var client *firestore.Client
	var err error
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

// Close releases the underlying Firestore client
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func (f *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(id)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// Get returns the session by id, treating expired sessions as absent
func (f *FirestoreStore) Get(ctx context.Context, id string) (*session.Session, error) {
	snap, err := f.doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	s := fromDoc(&doc)
	if s.Expired() {
		// Best effort; the cleanup loop catches anything missed here
		if _, err := f.doc(id).Delete(ctx); err != nil {
			log.LogWarnWithFields("storage", "Failed to delete expired session", map[string]any{
				"session": id,
				"error":   err.Error(),
			})
		}
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Put writes the full session
func (f *FirestoreStore) Put(ctx context.Context, s *session.Session) error {
	if _, err := f.doc(s.ID).Set(ctx, toDoc(s)); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Delete removes the session; absent sessions are not an error
func (f *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := f.doc(id).Delete(ctx); err != nil && !isNotFound(err) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// SetPendingState writes the single-use OAuth state onto the session
func (f *FirestoreStore) SetPendingState(ctx context.Context, id string, ps *session.PendingState) error {
	_, err := f.doc(id).Update(ctx, []firestore.Update{
		{Path: "pending_state", Value: &pendingStateDoc{
			State:          ps.State,
			OrganizationID: ps.OrganizationID,
			CreatedAt:      ps.CreatedAt,
		}},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("writing pending state: %w", err)
	}
	return nil
}

// ConsumePendingState atomically compares and clears the pending state
// inside a Firestore transaction.
func (f *FirestoreStore) ConsumePendingState(ctx context.Context, id, state string) (*session.PendingState, error) {
	var consumed *session.PendingState

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(f.doc(id))
		if err != nil {
			if isNotFound(err) {
				return ErrSessionNotFound
			}
			return err
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decoding session: %w", err)
		}
		if doc.PendingState == nil {
			return ErrNoPendingState
		}
		if doc.PendingState.State != state {
			return ErrStateMismatch
		}

		consumed = &session.PendingState{
			State:          doc.PendingState.State,
			OrganizationID: doc.PendingState.OrganizationID,
			CreatedAt:      doc.PendingState.CreatedAt,
		}
		return tx.Update(f.doc(id), []firestore.Update{
			{Path: "pending_state", Value: firestore.Delete},
		})
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

// UpdateTokens overwrites the session's token material
func (f *FirestoreStore) UpdateTokens(ctx context.Context, id string, tokens *session.TokenSet) error {
	_, err := f.doc(id).Update(ctx, []firestore.Update{
		{Path: "tokens", Value: &tokenDoc{
			AccessToken:  tokens.AccessToken,
			RefreshToken: tokens.RefreshToken,
			IDToken:      tokens.IDToken,
			ExpiresAt:    tokens.ExpiresAt,
		}},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("writing tokens: %w", err)
	}
	return nil
}

// PurgeExpired removes sessions past their TTL
func (f *FirestoreStore) PurgeExpired(ctx context.Context) (int, error) {
	iter := f.client.Collection(f.collection).
		Where("expires_at", "<", time.Now()).
		Documents(ctx)
	defer iter.Stop()

	purged := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return purged, fmt.Errorf("iterating expired sessions: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			log.LogWarnWithFields("storage", "Failed to delete expired session", map[string]any{
				"session": snap.Ref.ID,
				"error":   err.Error(),
			})
			continue
		}
		purged++
	}
	return purged, nil
}
