package scalekit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalekit-inc/org-switcher-demo/internal/config"
)

// newTestClient spins up a fake platform and returns a client pointed at
// it. The mux handles whatever endpoints the test needs; /oauth/token
// always answers the client-credentials grant so admin API calls work.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, string) {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		EnvURL:       server.URL,
		ClientID:     "skc_test",
		ClientSecret: config.Secret("test-secret"),
		RedirectURI:  server.URL + "/auth/callback",
	}
	return New(cfg), server.URL
}

func serveToken(t *testing.T, mux *http.ServeMux, response map[string]any) {
	t.Helper()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.FormValue("grant_type") == "client_credentials" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "api-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
			return
		}
		_ = json.NewEncoder(w).Encode(response)
	})
}

func TestAuthorizationURL(t *testing.T) {
	client, envURL := newTestClient(t, http.NewServeMux())

	t.Run("plain login", func(t *testing.T) {
		raw := client.AuthorizationURL("state-1", AuthorizationURLOptions{})
		u, err := url.Parse(raw)
		require.NoError(t, err)

		assert.Equal(t, envURL+"/oauth/authorize", u.Scheme+"://"+u.Host+u.Path)
		q := u.Query()
		assert.Equal(t, "skc_test", q.Get("client_id"))
		assert.Equal(t, "state-1", q.Get("state"))
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Empty(t, q.Get("organization_id"))
		assert.Empty(t, q.Get("prompt"))
	})

	t.Run("org switch", func(t *testing.T) {
		raw := client.AuthorizationURL("state-2", AuthorizationURLOptions{
			OrganizationID: "org_123",
			Prompt:         "select_account",
		})
		q, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "org_123", q.Query().Get("organization_id"))
		assert.Equal(t, "select_account", q.Query().Get("prompt"))
	})
}

func TestExchangeCode(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(t, mux, map[string]any{
		"access_token":  "access-1",
		"refresh_token": "refresh-1",
		"id_token":      "id-1",
		"token_type":    "Bearer",
		"expires_in":    3600,
	})
	client, _ := newTestClient(t, mux)

	tokens, err := client.ExchangeCode(context.Background(), "code-abc")
	require.NoError(t, err)

	assert.Equal(t, "access-1", tokens.AccessToken)
	assert.Equal(t, "refresh-1", tokens.RefreshToken)
	assert.Equal(t, "id-1", tokens.IDToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tokens.ExpiresAt, time.Minute)
}

func TestExchangeCodeUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.ExchangeCode(context.Background(), "expired-code")
	require.Error(t, err)

	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestRefreshPreservesRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(t, mux, map[string]any{
		"access_token": "access-2",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
	client, _ := newTestClient(t, mux)

	tokens, err := client.Refresh(context.Background(), "refresh-old")
	require.NoError(t, err)

	assert.Equal(t, "access-2", tokens.AccessToken)
	assert.Equal(t, "refresh-old", tokens.RefreshToken)
}

func TestValidateToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "key-1",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	client, envURL := newTestClient(t, mux)

	sign := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = "key-1"
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	t.Run("valid token", func(t *testing.T) {
		signed := sign(jwt.MapClaims{
			"iss":   envURL,
			"sub":   "usr_1",
			"email": "jane@example.com",
			"oid":   "org_current",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		claims, err := client.ValidateToken(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, "usr_1", claims.Subject)
		assert.Equal(t, "jane@example.com", claims.Email)
		assert.Equal(t, "org_current", claims.CurrentOrganizationID())
	})

	t.Run("expired token", func(t *testing.T) {
		signed := sign(jwt.MapClaims{
			"iss": envURL,
			"sub": "usr_1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := client.ValidateToken(context.Background(), signed)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := client.ValidateToken(context.Background(), "not-a-jwt")
		assert.Error(t, err)
	})
}

func TestLogoutURL(t *testing.T) {
	client, envURL := newTestClient(t, http.NewServeMux())

	t.Run("with id token", func(t *testing.T) {
		raw := client.LogoutURL("id-token-1")
		u, err := url.Parse(raw)
		require.NoError(t, err)

		assert.Equal(t, "/oidc/logout", u.Path)
		assert.Equal(t, "id-token-1", u.Query().Get("id_token_hint"))
		assert.Equal(t, envURL, u.Query().Get("post_logout_redirect_uri"))
	})

	t.Run("without id token", func(t *testing.T) {
		raw := client.LogoutURL("")
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Empty(t, u.Query().Get("id_token_hint"))
	})
}
