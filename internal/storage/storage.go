// Package storage persists browser sessions behind a pluggable store
// interface: in-memory for tests and single-process demo runs, Firestore
// for deployments.
package storage

import (
	"context"
	"errors"

	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

// ErrSessionNotFound is returned when a session doesn't exist or has expired
var ErrSessionNotFound = errors.New("session not found")

// ErrNoPendingState is returned when a callback arrives with no pending
// OAuth state, including the duplicate-callback case where the state was
// already consumed
var ErrNoPendingState = errors.New("no pending oauth state")

// ErrStateMismatch is returned when the callback state does not match the
// session's pending value
var ErrStateMismatch = errors.New("oauth state mismatch")

// SessionStore is the contract every session backend implements.
//
// ConsumePendingState is the concurrency-sensitive operation: the pending
// state must be compared and cleared atomically so concurrent duplicate
// callback deliveries cannot both succeed and double-exchange a single-use
// authorization code.
type SessionStore interface {
	// Get returns the session by id. Expired sessions are treated as
	// not found.
	Get(ctx context.Context, id string) (*session.Session, error)

	// Put writes the full session, creating or replacing it.
	Put(ctx context.Context, s *session.Session) error

	// Delete removes the session. Deleting an absent session is not an
	// error (logout is idempotent).
	Delete(ctx context.Context, id string) error

	// SetPendingState writes the single-use OAuth state onto the session,
	// replacing any previous pending value.
	SetPendingState(ctx context.Context, id string, ps *session.PendingState) error

	// ConsumePendingState atomically compares the pending state against
	// the supplied value and clears it. Returns the consumed pending
	// state on match, ErrStateMismatch on a wrong value, ErrNoPendingState
	// when nothing is pending.
	ConsumePendingState(ctx context.Context, id, state string) (*session.PendingState, error)

	// UpdateTokens overwrites the session's token material. Last writer
	// wins; concurrent refreshes converge on a usable token set.
	UpdateTokens(ctx context.Context, id string, tokens *session.TokenSet) error

	// PurgeExpired removes sessions past their TTL and reports how many
	// were deleted.
	PurgeExpired(ctx context.Context) (int, error)
}
