package cookie

import (
	"net/http"
	"time"

	"github.com/scalekit-inc/org-switcher-demo/internal/envutil"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
)

// SessionCookie carries the opaque session identifier. The browser never
// sees token material, only this id.
const SessionCookie = "org_switcher_session"

// SetSession sets the session cookie with appropriate security settings
func SetSession(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogDebugWithFields("cookie", "Session cookie set", map[string]any{
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// ClearSession removes the session cookie
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	log.LogDebugWithFields("cookie", "Session cookie cleared", nil)
}

// GetSession retrieves the session cookie value
func GetSession(r *http.Request) (string, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
