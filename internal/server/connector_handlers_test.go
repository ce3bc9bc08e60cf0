package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scalekit-inc/org-switcher-demo/internal/connector"
	"github.com/scalekit-inc/org-switcher-demo/internal/scalekit"
	"github.com/scalekit-inc/org-switcher-demo/internal/testutil"
)

type connectorFixture struct {
	*authFixture
	api *testutil.MockConnectedAccountAPI
	mux *http.ServeMux
}

// newConnectorFixture wires the connector routes the way the app does,
// behind the session middleware, so path values and auth both apply.
func newConnectorFixture(t *testing.T) *connectorFixture {
	t.Helper()
	f := &connectorFixture{
		authFixture: newAuthFixture(t),
		api:         new(testutil.MockConnectedAccountAPI),
	}

	handlers := NewConnectorHandlers(connector.NewService(f.api, nil))
	auth := NewSessionAuthenticator(f.store, f.identity).Middleware()

	f.mux = http.NewServeMux()
	f.mux.Handle("GET /api/connectors", ChainMiddleware(http.HandlerFunc(handlers.ListHandler), auth))
	f.mux.Handle("POST /api/connectors/connect", ChainMiddleware(http.HandlerFunc(handlers.ConnectHandler), auth))
	f.mux.Handle("GET /api/connectors/{name}/status", ChainMiddleware(http.HandlerFunc(handlers.StatusHandler), auth))
	f.mux.Handle("POST /api/connectors/{name}/disconnect", ChainMiddleware(http.HandlerFunc(handlers.DisconnectHandler), auth))
	return f
}

func TestConnectorListHandler(t *testing.T) {
	t.Run("lists per-user state", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)
		f.api.On("GetOrCreateConnectedAccount", mock.Anything, mock.Anything, "jane@example.com").
			Return(&scalekit.ConnectedAccount{ID: "ca_1", Status: "ACTIVE"}, nil)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/connectors", nil), sess.ID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[connectorListResponse](t, rec)
		require.Len(t, resp.Connectors, 3)
		assert.True(t, resp.Connectors[0].Connected)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newConnectorFixture(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/connectors", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestConnectorConnectHandler(t *testing.T) {
	t.Run("returns authorization link", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)
		f.api.On("ConnectedAccountAuthorizationLink", mock.Anything, "github", "jane@example.com", "").
			Return("https://platform.example.com/authorize/abc", nil)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/connect",
			map[string]string{"connector": "github"}), sess.ID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[connectResponse](t, rec)
		assert.Equal(t, "https://platform.example.com/authorize/abc", resp.AuthURL)
		assert.Equal(t, "github", resp.Connector)
	})

	t.Run("unknown connector", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/connect",
			map[string]string{"connector": "jira"}), sess.ID))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing connector name", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/connect",
			map[string]string{}), sess.ID))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newConnectorFixture(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/connectors/connect",
			map[string]string{"connector": "github"}))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("platform failure", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)
		f.api.On("ConnectedAccountAuthorizationLink", mock.Anything, "github", "jane@example.com", "").
			Return("", &scalekit.UpstreamError{Op: "authorization link", Err: assert.AnError})

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/connect",
			map[string]string{"connector": "github"}), sess.ID))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestConnectorStatusHandler(t *testing.T) {
	t.Run("known connector", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)
		f.api.On("GetOrCreateConnectedAccount", mock.Anything, "slack", "jane@example.com").
			Return(&scalekit.ConnectedAccount{ID: "ca_sl", Status: "PENDING"}, nil)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/connectors/slack/status", nil), sess.ID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[connector.Connector](t, rec)
		assert.Equal(t, "slack", resp.ConnectorName)
		assert.False(t, resp.Connected)
		assert.Equal(t, "PENDING", resp.Status)
	})

	t.Run("unknown connector", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/connectors/jira/status", nil), sess.ID))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConnectorDisconnectHandler(t *testing.T) {
	t.Run("disconnects", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)
		f.api.On("DeleteConnectedAccount", mock.Anything, "github", "jane@example.com").Return(nil)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/github/disconnect", nil), sess.ID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[disconnectResponse](t, rec)
		assert.True(t, resp.Success)
		assert.Equal(t, "github", resp.Connector)

		// The platform treats a missing account as already done, so a
		// repeat disconnect succeeds the same way.
		rec2 := httptest.NewRecorder()
		f.mux.ServeHTTP(rec2, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/github/disconnect", nil), sess.ID))
		assert.Equal(t, http.StatusOK, rec2.Code)
	})

	t.Run("unknown connector", func(t *testing.T) {
		f := newConnectorFixture(t)
		sess := f.seedSession(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, withSessionCookie(jsonRequest(http.MethodPost, "/api/connectors/jira/disconnect", nil), sess.ID))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newConnectorFixture(t)

		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/connectors/github/disconnect", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
