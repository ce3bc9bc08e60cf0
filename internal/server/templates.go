package server

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/scalekit-inc/org-switcher-demo/internal/cookie"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/storage"
)

//go:embed templates/home.html
var homePageTemplateHTML string

var homePageTemplate = template.Must(template.New("home").Parse(homePageTemplateHTML))

// HomePageData represents the data for the demo landing page
type HomePageData struct {
	Authenticated       bool
	UserName            string
	UserEmail           string
	CurrentOrganization string
}

// HomeHandler renders the demo landing page. The page itself is plain
// server-side HTML; the interesting flows go through the JSON API.
type HomeHandler struct {
	store storage.SessionStore
}

func NewHomeHandler(store storage.SessionStore) *HomeHandler {
	return &HomeHandler{store: store}
}

func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := HomePageData{}

	if sessionID, err := cookie.GetSession(r); err == nil {
		if sess, err := h.store.Get(r.Context(), sessionID); err == nil && sess.Authenticated() {
			data.Authenticated = true
			data.UserName = sess.User.Name
			data.UserEmail = sess.User.Email
			data.CurrentOrganization = sess.User.CurrentOrganizationID
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homePageTemplate.Execute(w, data); err != nil {
		log.LogError("Failed to render home page: %v", err)
	}
}
