package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/scalekit-inc/org-switcher-demo/internal/scalekit"
	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

type MockIdentityClient struct {
	mock.Mock
}

func (m *MockIdentityClient) AuthorizationURL(state string, opts scalekit.AuthorizationURLOptions) string {
	args := m.Called(state, opts)
	return args.String(0)
}

func (m *MockIdentityClient) ExchangeCode(ctx context.Context, code string) (*session.TokenSet, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TokenSet), args.Error(1)
}

func (m *MockIdentityClient) Refresh(ctx context.Context, refreshToken string) (*session.TokenSet, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.TokenSet), args.Error(1)
}

func (m *MockIdentityClient) ValidateToken(ctx context.Context, accessToken string) (*scalekit.Claims, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scalekit.Claims), args.Error(1)
}

func (m *MockIdentityClient) LogoutURL(idToken string) string {
	args := m.Called(idToken)
	return args.String(0)
}

func (m *MockIdentityClient) UserOrganizations(ctx context.Context, userID string) ([]session.Organization, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]session.Organization), args.Error(1)
}

type MockConnectedAccountAPI struct {
	mock.Mock
}

func (m *MockConnectedAccountAPI) GetOrCreateConnectedAccount(ctx context.Context, connectionName, identifier string) (*scalekit.ConnectedAccount, error) {
	args := m.Called(ctx, connectionName, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scalekit.ConnectedAccount), args.Error(1)
}

func (m *MockConnectedAccountAPI) ConnectedAccountAuthorizationLink(ctx context.Context, connectionName, identifier, redirectURL string) (string, error) {
	args := m.Called(ctx, connectionName, identifier, redirectURL)
	return args.String(0), args.Error(1)
}

func (m *MockConnectedAccountAPI) DeleteConnectedAccount(ctx context.Context, connectionName, identifier string) error {
	args := m.Called(ctx, connectionName, identifier)
	return args.Error(0)
}
