// Package session defines the data held for an authenticated browser
// session: the user's profile derived from validated claims, the token
// material from the identity platform, and the single-use OAuth state
// tying an authorization request to its callback.
package session

import "time"

// TokenSet holds the token material returned by the identity platform.
// It is persisted in the session store and never serialized into API
// responses.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the access token has expired or will
// expire within the given margin.
func (t *TokenSet) ExpiresWithin(margin time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Add(margin).After(t.ExpiresAt)
}

// User is the profile derived from validated token claims.
// CurrentOrganizationID changes only through a completed org-switch
// callback.
type User struct {
	ID                    string `json:"id"`
	Email                 string `json:"email"`
	Name                  string `json:"name"`
	CurrentOrganizationID string `json:"current_organization_id,omitempty"`
}

// Organization is a membership entry returned to the client. Exactly one
// entry has IsCurrent set whenever the list is non-empty.
type Organization struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsCurrent   bool   `json:"is_current"`
}

// PendingState is the single-use anti-CSRF nonce written when an
// authorization URL is issued and consumed exactly once on callback.
type PendingState struct {
	State          string    `json:"state"`
	OrganizationID string    `json:"organization_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session is the unit stored under the opaque cookie id.
type Session struct {
	ID           string        `json:"id"`
	User         *User         `json:"user,omitempty"`
	Tokens       *TokenSet     `json:"tokens,omitempty"`
	PendingState *PendingState `json:"pending_state,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
}

// Authenticated reports whether the session carries a logged-in user
// with token material.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.Tokens != nil && s.Tokens.AccessToken != ""
}

// Expired reports whether the session itself has outlived its TTL.
func (s *Session) Expired() bool {
	return s != nil && !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// MarkCurrent sets IsCurrent on the entry matching currentOrgID. When no
// entry matches and the list is non-empty, the first entry is marked so
// the exactly-one-current invariant holds.
func MarkCurrent(orgs []Organization, currentOrgID string) []Organization {
	if len(orgs) == 0 {
		return orgs
	}
	matched := false
	for i := range orgs {
		orgs[i].IsCurrent = orgs[i].ID == currentOrgID
		matched = matched || orgs[i].IsCurrent
	}
	if !matched {
		orgs[0].IsCurrent = true
	}
	return orgs
}
