package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/scalekit-inc/org-switcher-demo/internal/cookie"
	"github.com/scalekit-inc/org-switcher-demo/internal/crypto"
	jsonwriter "github.com/scalekit-inc/org-switcher-demo/internal/json"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/scalekit"
	"github.com/scalekit-inc/org-switcher-demo/internal/session"
	"github.com/scalekit-inc/org-switcher-demo/internal/storage"
)

// IdentityClient is the slice of the platform client the handlers need.
// Implemented by *scalekit.Client.
type IdentityClient interface {
	AuthorizationURL(state string, opts scalekit.AuthorizationURLOptions) string
	ExchangeCode(ctx context.Context, code string) (*session.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*session.TokenSet, error)
	ValidateToken(ctx context.Context, accessToken string) (*scalekit.Claims, error)
	LogoutURL(idToken string) string
	UserOrganizations(ctx context.Context, userID string) ([]session.Organization, error)
}

// AuthHandlers provides the login, callback, org-switch, and logout
// endpoints.
type AuthHandlers struct {
	store      storage.SessionStore
	identity   IdentityClient
	sessionTTL time.Duration
}

func NewAuthHandlers(store storage.SessionStore, identity IdentityClient, sessionTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{
		store:      store,
		identity:   identity,
		sessionTTL: sessionTTL,
	}
}

type authURLRequest struct {
	OrganizationID string `json:"organization_id,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
}

type authURLResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// ensureSession returns the request's session, creating an anonymous one
// (and setting the cookie) when none exists yet. Login starts before any
// session does, so the authorization URL endpoints cannot require one.
func (h *AuthHandlers) ensureSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if sessionID, err := cookie.GetSession(r); err == nil {
		if sess, err := h.store.Get(r.Context(), sessionID); err == nil {
			return sess, nil
		}
	}

	id, err := crypto.GenerateSecureToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session.Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(h.sessionTTL),
	}
	if err := h.store.Put(r.Context(), sess); err != nil {
		return nil, err
	}
	cookie.SetSession(w, sess.ID, h.sessionTTL)
	return sess, nil
}

// issueAuthorizationURL writes a fresh pending state onto the session and
// responds with the platform login link carrying it.
func (h *AuthHandlers) issueAuthorizationURL(w http.ResponseWriter, r *http.Request, opts scalekit.AuthorizationURLOptions) {
	sess, err := h.ensureSession(w, r)
	if err != nil {
		log.LogError("Failed to create session: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to create session")
		return
	}

	state, err := crypto.GenerateSecureToken()
	if err != nil {
		log.LogError("Failed to generate state token: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to generate state")
		return
	}
	pending := &session.PendingState{
		State:          state,
		OrganizationID: opts.OrganizationID,
		CreatedAt:      time.Now(),
	}
	if err := h.store.SetPendingState(r.Context(), sess.ID, pending); err != nil {
		log.LogError("Failed to store pending state: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to store state")
		return
	}

	_ = jsonwriter.Write(w, authURLResponse{
		AuthURL: h.identity.AuthorizationURL(state, opts),
		State:   state,
	})
}

// AuthURLHandler starts a login. POST /api/auth/url
func (h *AuthHandlers) AuthURLHandler(w http.ResponseWriter, r *http.Request) {
	// An empty body means a plain login with no org preference.
	var req authURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}

	h.issueAuthorizationURL(w, r, scalekit.AuthorizationURLOptions{
		OrganizationID: req.OrganizationID,
		Prompt:         req.Prompt,
	})
}

type callbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

type callbackResponse struct {
	Success       bool                   `json:"success"`
	User          *session.User          `json:"user"`
	Organizations []session.Organization `json:"organizations"`
}

// CallbackHandler completes a login or org switch. POST /api/auth/callback
//
// The pending state is consumed atomically before the code is touched, so
// a duplicate callback delivery fails on the state check instead of
// re-exchanging a single-use code.
func (h *AuthHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Error != "" {
		// The platform redirected back with an error instead of a code
		// (user denied, misconfigured connection).
		jsonwriter.WriteBadRequest(w, "Authorization failed: "+req.Error)
		return
	}
	if req.Code == "" || req.State == "" {
		jsonwriter.WriteBadRequest(w, "Missing code or state")
		return
	}

	sessionID, err := cookie.GetSession(r)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid state")
		return
	}

	ctx := r.Context()
	pending, err := h.store.ConsumePendingState(ctx, sessionID, req.State)
	if err != nil {
		log.LogWarnWithFields("auth", "Callback state rejected", map[string]any{
			"error": err.Error(),
		})
		jsonwriter.WriteBadRequest(w, "Invalid state")
		return
	}

	tokens, err := h.identity.ExchangeCode(ctx, req.Code)
	if err != nil {
		writeExchangeError(w, err)
		return
	}

	claims, err := h.identity.ValidateToken(ctx, tokens.AccessToken)
	if err != nil {
		log.LogError("Token validation failed after exchange: %v", err)
		jsonwriter.WriteUpstreamError(w, "Token validation failed")
		return
	}

	user := &session.User{
		ID:                    claims.Subject,
		Email:                 claims.Email,
		Name:                  claims.DisplayName(),
		CurrentOrganizationID: claims.CurrentOrganizationID(),
	}
	if user.CurrentOrganizationID == "" {
		// Directory-backed tokens may omit the org claim; the org the
		// switch asked for is the next best answer.
		user.CurrentOrganizationID = pending.OrganizationID
	}

	sess, err := h.store.Get(ctx, sessionID)
	if err != nil {
		jsonwriter.WriteBadRequest(w, "Invalid state")
		return
	}
	sess.User = user
	sess.Tokens = tokens
	if err := h.store.Put(ctx, sess); err != nil {
		log.LogError("Failed to persist session: %v", err)
		jsonwriter.WriteInternalServerError(w, "Failed to persist session")
		return
	}

	orgs, err := h.organizations(ctx, user)
	if err != nil {
		jsonwriter.WriteUpstreamError(w, "Failed to list organizations")
		return
	}

	log.LogInfoWithFields("auth", "Login completed", map[string]any{
		"user":         user.ID,
		"organization": user.CurrentOrganizationID,
	})
	_ = jsonwriter.Write(w, callbackResponse{
		Success:       true,
		User:          user,
		Organizations: orgs,
	})
}

type userInfoResponse struct {
	User          *session.User          `json:"user"`
	Organizations []session.Organization `json:"organizations"`
	Authenticated bool                   `json:"authenticated"`
}

// UserInfoHandler returns the session's user and their organization
// memberships. GET /api/auth/user, behind the session middleware.
func (h *AuthHandlers) UserInfoHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthenticated(w, "Not authenticated")
		return
	}

	orgs, err := h.organizations(r.Context(), sess.User)
	if err != nil {
		jsonwriter.WriteUpstreamError(w, "Failed to list organizations")
		return
	}

	_ = jsonwriter.Write(w, userInfoResponse{
		User:          sess.User,
		Organizations: orgs,
		Authenticated: true,
	})
}

type switchOrgRequest struct {
	OrganizationID string `json:"organization_id"`
}

// SwitchOrgHandler starts an org switch. POST /api/auth/switch-org,
// behind the session middleware.
//
// The switch only issues the authorization URL; current_organization_id
// changes when the matching callback lands with the new org's claims.
func (h *AuthHandlers) SwitchOrgHandler(w http.ResponseWriter, r *http.Request) {
	var req switchOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrganizationID == "" {
		jsonwriter.WriteBadRequest(w, "Missing organization_id")
		return
	}

	h.issueAuthorizationURL(w, r, scalekit.AuthorizationURLOptions{
		OrganizationID: req.OrganizationID,
		Prompt:         "select_account",
	})
}

type logoutResponse struct {
	Success   bool   `json:"success"`
	LogoutURL string `json:"logout_url,omitempty"`
}

// LogoutHandler destroys the session. POST /api/auth/logout
//
// Idempotent: a second logout, or one without a session at all, still
// succeeds. The platform logout URL is only available while the session
// still holds an id token.
func (h *AuthHandlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	resp := logoutResponse{Success: true}

	if sessionID, err := cookie.GetSession(r); err == nil {
		if sess, err := h.store.Get(r.Context(), sessionID); err == nil {
			if sess.Tokens != nil && sess.Tokens.IDToken != "" {
				resp.LogoutURL = h.identity.LogoutURL(sess.Tokens.IDToken)
			}
			if sess.User != nil {
				log.LogInfoWithFields("auth", "User logged out", map[string]any{
					"user": sess.User.ID,
				})
			}
		}
		if err := h.store.Delete(r.Context(), sessionID); err != nil {
			log.LogWarnWithFields("auth", "Session delete failed on logout", map[string]any{
				"error": err.Error(),
			})
		}
	}

	cookie.ClearSession(w)
	_ = jsonwriter.Write(w, resp)
}

// organizations lists the user's memberships with is_current computed
// against the session's current organization.
func (h *AuthHandlers) organizations(ctx context.Context, user *session.User) ([]session.Organization, error) {
	orgs, err := h.identity.UserOrganizations(ctx, user.ID)
	if err != nil {
		log.LogError("Organization listing failed: %v", err)
		return nil, err
	}
	return session.MarkCurrent(orgs, user.CurrentOrganizationID), nil
}

// writeExchangeError maps a code-exchange failure onto the API error
// taxonomy: a 4xx from the token endpoint means the code itself was bad
// (expired, reused), anything else is a platform failure.
func writeExchangeError(w http.ResponseWriter, err error) {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
		retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
		log.LogWarnWithFields("auth", "Code exchange rejected", map[string]any{
			"status": retrieveErr.Response.StatusCode,
		})
		jsonwriter.WriteBadRequest(w, "Invalid grant")
		return
	}
	log.LogError("Code exchange failed: %v", err)
	jsonwriter.WriteUpstreamError(w, "Code exchange failed")
}
