package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetExpiresWithin(t *testing.T) {
	t.Run("nil token set", func(t *testing.T) {
		var ts *TokenSet
		assert.True(t, ts.ExpiresWithin(time.Minute))
	})

	t.Run("zero expiry", func(t *testing.T) {
		ts := &TokenSet{AccessToken: "tok"}
		assert.True(t, ts.ExpiresWithin(time.Minute))
	})

	t.Run("expires inside margin", func(t *testing.T) {
		ts := &TokenSet{AccessToken: "tok", ExpiresAt: time.Now().Add(30 * time.Second)}
		assert.True(t, ts.ExpiresWithin(time.Minute))
	})

	t.Run("still valid", func(t *testing.T) {
		ts := &TokenSet{AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		assert.False(t, ts.ExpiresWithin(time.Minute))
	})
}

func TestSessionAuthenticated(t *testing.T) {
	assert.False(t, (&Session{}).Authenticated())
	assert.False(t, (&Session{User: &User{ID: "usr_1"}}).Authenticated())

	s := &Session{
		User:   &User{ID: "usr_1"},
		Tokens: &TokenSet{AccessToken: "tok"},
	}
	assert.True(t, s.Authenticated())
}

func TestMarkCurrent(t *testing.T) {
	orgs := []Organization{
		{ID: "org_a", DisplayName: "Acme"},
		{ID: "org_b", DisplayName: "Beta"},
	}

	t.Run("marks matching org", func(t *testing.T) {
		marked := MarkCurrent(append([]Organization(nil), orgs...), "org_b")
		assert.False(t, marked[0].IsCurrent)
		assert.True(t, marked[1].IsCurrent)
	})

	t.Run("exactly one current when no match", func(t *testing.T) {
		marked := MarkCurrent(append([]Organization(nil), orgs...), "org_missing")
		current := 0
		for _, o := range marked {
			if o.IsCurrent {
				current++
			}
		}
		assert.Equal(t, 1, current)
	})

	t.Run("empty list stays empty", func(t *testing.T) {
		assert.Empty(t, MarkCurrent(nil, "org_a"))
	})
}
