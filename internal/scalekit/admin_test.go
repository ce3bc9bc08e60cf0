package scalekit

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

func TestUserOrganizations(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(t, mux, nil)
	mux.HandleFunc("GET /api/v1/users/usr_1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"user": {
				"memberships": [
					{"organization_id": "org_a", "organization_name": "Acme (membership)"},
					{"organization_id": "org_b", "organization_name": "Beta Corp"},
					{"organization_id": ""}
				]
			}
		}`))
	})
	mux.HandleFunc("GET /api/v1/organizations/org_a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organization": {"id": "org_a", "display_name": "Acme Inc"}}`))
	})
	mux.HandleFunc("GET /api/v1/organizations/org_b", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	orgs, err := client.UserOrganizations(context.Background(), "usr_1")
	require.NoError(t, err)

	// org_a resolves through the organization API, org_b falls back to
	// the membership name, the blank membership is skipped.
	assert.Equal(t, []session.Organization{
		{ID: "org_a", DisplayName: "Acme Inc"},
		{ID: "org_b", DisplayName: "Beta Corp"},
	}, orgs)
}

func TestUserOrganizationsUserLookupFails(t *testing.T) {
	mux := http.NewServeMux()
	serveToken(t, mux, nil)
	mux.HandleFunc("GET /api/v1/users/usr_missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.UserOrganizations(context.Background(), "usr_missing")
	require.Error(t, err)

	var upstream *UpstreamError
	assert.ErrorAs(t, err, &upstream)
}
