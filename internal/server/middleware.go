package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scalekit-inc/org-switcher-demo/internal/cookie"
	jsonwriter "github.com/scalekit-inc/org-switcher-demo/internal/json"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/session"
	"github.com/scalekit-inc/org-switcher-demo/internal/storage"
)

// refreshMargin is how close to expiry an access token may get before an
// authenticated request refreshes it first.
const refreshMargin = time.Minute

// MiddlewareFunc is a function that wraps an http.Handler
type MiddlewareFunc func(http.Handler) http.Handler

// ChainMiddleware chains multiple middleware functions
func ChainMiddleware(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for _, mw := range middlewares {
		h = mw(h)
	}
	return h
}

// NewCORSMiddleware adds CORS headers for the configured browser origins.
// The session cookie only flows cross-origin with credentials allowed, so
// origins are matched exactly rather than wildcarded.
func NewCORSMiddleware(allowedOrigins []string) MiddlewareFunc {
	allowedMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedMap[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowedMap[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// responseWriterDelegator wraps http.ResponseWriter to capture status and
// bytes written while delegating optional interfaces through Unwrap
type responseWriterDelegator struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriterDelegator {
	return &responseWriterDelegator{
		ResponseWriter: w,
		status:         http.StatusOK,
	}
}

func (r *responseWriterDelegator) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseWriterDelegator) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += n
	return n, err
}

// Unwrap returns the underlying ResponseWriter for interface detection
func (r *responseWriterDelegator) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

var _ http.ResponseWriter = (*responseWriterDelegator)(nil)

// NewLoggerMiddleware adds request/response logging
func NewLoggerMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			fields := map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.status,
				"duration_ms": time.Since(start).Milliseconds(),
				"bytes":       wrapped.written,
				"remote_addr": r.RemoteAddr,
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}
			log.LogInfoWithFields(prefix, "request", fields)
		})
	}
}

// NewRecoverMiddleware recovers from panics
func NewRecoverMiddleware(prefix string) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Logf("<%s> Recovered from panic: %v", prefix, err)
					jsonwriter.WriteInternalServerError(w, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type sessionContextKey struct{}

// SessionFromContext returns the authenticated session resolved by the
// session middleware.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*session.Session)
	return s, ok
}

// SessionAuthenticator resolves the session cookie, refreshes token
// material near expiry, and hands the session to handlers through the
// request context.
type SessionAuthenticator struct {
	store    storage.SessionStore
	identity IdentityClient

	// refreshGroup collapses concurrent refreshes of the same session
	// into one platform call; the other requests reuse its result.
	refreshGroup singleflight.Group
}

func NewSessionAuthenticator(store storage.SessionStore, identity IdentityClient) *SessionAuthenticator {
	return &SessionAuthenticator{store: store, identity: identity}
}

// Middleware rejects requests without a live authenticated session.
func (a *SessionAuthenticator) Middleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := a.authenticate(w, r)
			if err != nil {
				jsonwriter.WriteUnauthenticated(w, "Not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errUnauthenticated = errors.New("unauthenticated")

func (a *SessionAuthenticator) authenticate(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	sessionID, err := cookie.GetSession(r)
	if err != nil {
		return nil, errUnauthenticated
	}

	ctx := r.Context()
	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		cookie.ClearSession(w)
		return nil, errUnauthenticated
	}
	if !sess.Authenticated() {
		return nil, errUnauthenticated
	}

	if sess.Tokens.ExpiresWithin(refreshMargin) {
		tokens, err := a.refresh(ctx, sess)
		if err != nil {
			// The refresh token is spent. Drop the session so the
			// client re-logs in; logout stays idempotent so a missing
			// session here is fine.
			log.LogWarnWithFields("auth", "Token refresh failed, invalidating session", map[string]any{
				"error": err.Error(),
			})
			_ = a.store.Delete(ctx, sessionID)
			cookie.ClearSession(w)
			return nil, errUnauthenticated
		}
		sess.Tokens = tokens
	}

	return sess, nil
}

// refresh exchanges the session's refresh token for fresh token material
// and persists it. Concurrent callers for the same session share one
// exchange. Last writer wins on the stored tokens; the refresh is
// idempotent so either write leaves a usable session.
func (a *SessionAuthenticator) refresh(ctx context.Context, sess *session.Session) (*session.TokenSet, error) {
	result, err, _ := a.refreshGroup.Do(sess.ID, func() (any, error) {
		tokens, err := a.identity.Refresh(ctx, sess.Tokens.RefreshToken)
		if err != nil {
			return nil, err
		}
		if err := a.store.UpdateTokens(ctx, sess.ID, tokens); err != nil {
			return nil, err
		}
		log.LogDebugWithFields("auth", "Access token refreshed", map[string]any{
			"session": sess.ID[:8],
		})
		return tokens, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*session.TokenSet), nil
}
