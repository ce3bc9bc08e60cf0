package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scalekit-inc/org-switcher-demo/internal/connector"
	jsonwriter "github.com/scalekit-inc/org-switcher-demo/internal/json"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
)

// ConnectorHandlers expose the connector directory and the per-connector
// connect and disconnect operations. All of them sit behind the session
// middleware; connector identity on the platform side is the session
// user's email.
type ConnectorHandlers struct {
	service *connector.Service
}

func NewConnectorHandlers(service *connector.Service) *ConnectorHandlers {
	return &ConnectorHandlers{service: service}
}

type connectorListResponse struct {
	Connectors []connector.Connector `json:"connectors"`
}

// ListHandler returns every configured connector with the user's
// connection state. GET /api/connectors
func (h *ConnectorHandlers) ListHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthenticated(w, "Not authenticated")
		return
	}

	_ = jsonwriter.Write(w, connectorListResponse{
		Connectors: h.service.List(r.Context(), sess.User.Email),
	})
}

type connectRequest struct {
	Connector   string `json:"connector"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type connectResponse struct {
	AuthURL   string `json:"auth_url"`
	Connector string `json:"connector"`
}

// ConnectHandler returns the platform's authorization link for the
// connector. POST /api/connectors/connect
//
// The handler does not wait for the handshake; connection state shows up
// on the next directory read.
func (h *ConnectorHandlers) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthenticated(w, "Not authenticated")
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Connector == "" {
		jsonwriter.WriteBadRequest(w, "Missing connector")
		return
	}

	link, err := h.service.AuthorizationLink(r.Context(), req.Connector, sess.User.Email, req.RedirectURL)
	if err != nil {
		h.writeServiceError(w, req.Connector, err)
		return
	}

	_ = jsonwriter.Write(w, connectResponse{
		AuthURL:   link,
		Connector: req.Connector,
	})
}

// StatusHandler returns one connector's state for the user.
// GET /api/connectors/{name}/status
func (h *ConnectorHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthenticated(w, "Not authenticated")
		return
	}

	status, err := h.service.Status(r.Context(), r.PathValue("name"), sess.User.Email)
	if err != nil {
		h.writeServiceError(w, r.PathValue("name"), err)
		return
	}
	_ = jsonwriter.Write(w, status)
}

type disconnectResponse struct {
	Success   bool   `json:"success"`
	Connector string `json:"connector"`
	Message   string `json:"message"`
}

// DisconnectHandler unlinks the user's account from the connector.
// POST /api/connectors/{name}/disconnect
func (h *ConnectorHandlers) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		jsonwriter.WriteUnauthenticated(w, "Not authenticated")
		return
	}

	name := r.PathValue("name")
	if err := h.service.Disconnect(r.Context(), name, sess.User.Email); err != nil {
		h.writeServiceError(w, name, err)
		return
	}

	log.LogInfoWithFields("connector", "Connector disconnected", map[string]any{
		"connector": name,
		"user":      sess.User.ID,
	})
	_ = jsonwriter.Write(w, disconnectResponse{
		Success:   true,
		Connector: name,
		Message:   "Disconnected " + name,
	})
}

func (h *ConnectorHandlers) writeServiceError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, connector.ErrUnknownConnector) {
		jsonwriter.WriteNotFound(w, "Unknown connector: "+name)
		return
	}
	log.LogError("Connector operation failed for %s: %v", name, err)
	jsonwriter.WriteUpstreamError(w, err.Error())
}
