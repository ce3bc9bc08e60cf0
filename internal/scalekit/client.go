// Package scalekit is the service's facade over the Scalekit identity
// platform: authorization URL generation, code exchange, token refresh,
// claims validation, logout URLs, and the admin and connected-accounts
// APIs. It is the only package that talks to the platform.
package scalekit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/scalekit-inc/org-switcher-demo/internal/config"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

// defaultTokenLifetime is assumed when the platform omits expires_in.
const defaultTokenLifetime = time.Hour

// UpstreamError wraps a failed call against the platform API so handlers
// can map it to a 502 without inspecting message text.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("scalekit %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// AuthorizationURLOptions carry the optional parameters of an
// authorization request.
type AuthorizationURLOptions struct {
	// OrganizationID scopes the login to a specific organization
	// (direct org switch).
	OrganizationID string

	// Prompt controls the platform's login screen; "select_account"
	// shows its organization picker.
	Prompt string
}

// Client talks to one Scalekit environment.
type Client struct {
	envURL      string
	oauth       oauth2.Config
	jwks        *jwksCache
	httpClient  *http.Client
	adminClient *http.Client

	postLogoutRedirectURI string
}

// New creates a platform client from service configuration.
func New(cfg *config.Config) *Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	// Admin API calls authenticate with the client-credentials grant.
	// The token source caches and renews the API token transparently.
	ccConfig := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: string(cfg.ClientSecret),
		TokenURL:     cfg.EnvURL + "/oauth/token",
	}
	ccCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)

	return &Client{
		envURL: cfg.EnvURL,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: string(cfg.ClientSecret),
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.ScopeList(),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.EnvURL + "/oauth/authorize",
				TokenURL: cfg.EnvURL + "/oauth/token",
			},
		},
		jwks:                  newJWKSCache(cfg.EnvURL+"/keys", httpClient),
		httpClient:            httpClient,
		adminClient:           ccConfig.Client(ccCtx),
		postLogoutRedirectURI: cfg.PostLogoutRedirectURI(),
	}
}

// AuthorizationURL builds the platform-hosted login link for the given
// state and options.
func (c *Client) AuthorizationURL(state string, opts AuthorizationURLOptions) string {
	var extras []oauth2.AuthCodeOption
	if opts.OrganizationID != "" {
		extras = append(extras, oauth2.SetAuthURLParam("organization_id", opts.OrganizationID))
	}
	if opts.Prompt != "" {
		extras = append(extras, oauth2.SetAuthURLParam("prompt", opts.Prompt))
	}
	return c.oauth.AuthCodeURL(state, extras...)
}

// ExchangeCode exchanges an authorization code for token material.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*session.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &UpstreamError{Op: "code exchange", Err: err}
	}
	return tokenSetFrom(token, ""), nil
}

// Refresh exchanges the stored refresh token for fresh token material.
// When the platform omits a new refresh token, the old one is preserved.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*session.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, &UpstreamError{Op: "token refresh", Err: err}
	}
	return tokenSetFrom(token, refreshToken), nil
}

// ValidateToken verifies the token's signature against the environment's
// JWKS and returns its claims.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(accessToken, &claims, c.jwks.keyfunc(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(c.envURL),
	)
	if err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}
	return &claims, nil
}

// LogoutURL builds the platform logout link for single-sign-out. The
// id token is passed as id_token_hint so the platform can end the right
// session.
func (c *Client) LogoutURL(idToken string) string {
	u := fmt.Sprintf("%s/oidc/logout?post_logout_redirect_uri=%s",
		c.envURL, url.QueryEscape(c.postLogoutRedirectURI))
	if idToken != "" {
		u += "&id_token_hint=" + url.QueryEscape(idToken)
	}
	return u
}

func tokenSetFrom(token *oauth2.Token, previousRefreshToken string) *session.TokenSet {
	ts := &session.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if ts.RefreshToken == "" {
		ts.RefreshToken = previousRefreshToken
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	if ts.ExpiresAt.IsZero() {
		ts.ExpiresAt = time.Now().Add(defaultTokenLifetime)
		log.LogDebugWithFields("scalekit", "Token response had no expiry, assuming default", map[string]any{
			"lifetime": defaultTokenLifetime.String(),
		})
	}
	return ts
}
