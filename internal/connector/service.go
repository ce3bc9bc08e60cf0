package connector

import (
	"context"
	"errors"

	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/scalekit"
)

// ErrUnknownConnector is returned when a request names a connector that
// is not in the catalog.
var ErrUnknownConnector = errors.New("unknown connector")

// ConnectedAccountAPI is the slice of the platform client the service
// needs. Implemented by *scalekit.Client.
type ConnectedAccountAPI interface {
	GetOrCreateConnectedAccount(ctx context.Context, connectionName, identifier string) (*scalekit.ConnectedAccount, error)
	ConnectedAccountAuthorizationLink(ctx context.Context, connectionName, identifier, redirectURL string) (string, error)
	DeleteConnectedAccount(ctx context.Context, connectionName, identifier string) error
}

// Service resolves connector state for users against the platform.
type Service struct {
	api     ConnectedAccountAPI
	catalog []Definition
}

func NewService(api ConnectedAccountAPI, catalog []Definition) *Service {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Service{api: api, catalog: catalog}
}

func (s *Service) definition(name string) (Definition, bool) {
	for _, def := range s.catalog {
		if def.Name == name {
			return def, true
		}
	}
	return Definition{}, false
}

// List returns every configured connector with the given user's
// connection state. A failed lookup does not fail the listing; the
// affected entry carries the error inline so the rest of the directory
// still renders.
func (s *Service) List(ctx context.Context, email string) []Connector {
	connectors := make([]Connector, 0, len(s.catalog))
	for _, def := range s.catalog {
		connectors = append(connectors, s.resolve(ctx, def, email))
	}
	return connectors
}

// Status returns one connector's state for the given user. Returns
// ErrUnknownConnector when the name is not in the catalog.
func (s *Service) Status(ctx context.Context, name, email string) (*Connector, error) {
	def, ok := s.definition(name)
	if !ok {
		return nil, ErrUnknownConnector
	}
	c := s.resolve(ctx, def, email)
	return &c, nil
}

// AuthorizationLink asks the platform for the OAuth link the user opens
// to authorize the connector. The handshake completes on the platform's
// side; connection state becomes visible on the next List or Status.
func (s *Service) AuthorizationLink(ctx context.Context, name, email, redirectURL string) (string, error) {
	def, ok := s.definition(name)
	if !ok {
		return "", ErrUnknownConnector
	}
	return s.api.ConnectedAccountAuthorizationLink(ctx, def.ConnectionName, email, redirectURL)
}

// Disconnect unlinks the user's account from the connector. Already
// disconnected is a success.
func (s *Service) Disconnect(ctx context.Context, name, email string) error {
	def, ok := s.definition(name)
	if !ok {
		return ErrUnknownConnector
	}
	return s.api.DeleteConnectedAccount(ctx, def.ConnectionName, email)
}

func (s *Service) resolve(ctx context.Context, def Definition, email string) Connector {
	c := Connector{
		ConnectorName: def.Name,
		DisplayName:   def.DisplayName,
		Description:   def.Description,
		Icon:          def.Icon,
	}

	account, err := s.api.GetOrCreateConnectedAccount(ctx, def.ConnectionName, email)
	if err != nil {
		log.LogWarnWithFields("connector", "Connected account lookup failed", map[string]any{
			"connector": def.Name,
			"error":     err.Error(),
		})
		c.Status = "ERROR"
		c.Error = err.Error()
		return c
	}

	c.Connected = account.Connected()
	c.Status = account.Status
	c.AccountID = account.ID
	return c
}
