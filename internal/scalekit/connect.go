package scalekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/scalekit-inc/org-switcher-demo/internal/log"
)

// ConnectedAccount is a user's linked account on a third-party connector.
// Identity is the pair (connection name, user identifier) on the platform
// side; the service holds no state of its own.
type ConnectedAccount struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Connected reports whether the account completed its OAuth handshake.
func (a *ConnectedAccount) Connected() bool {
	return a != nil && a.Status == "ACTIVE"
}

type connectedAccountResponse struct {
	ConnectedAccount ConnectedAccount `json:"connected_account"`
}

type authorizationLinkResponse struct {
	Link string `json:"link"`
}

func (c *Client) apiPost(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.envURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.adminClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: "POST " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &UpstreamError{
			Op:  "POST " + path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: "POST " + path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// GetOrCreateConnectedAccount returns the user's connected account for
// the connection, creating a pending one when none exists yet.
func (c *Client) GetOrCreateConnectedAccount(ctx context.Context, connectionName, identifier string) (*ConnectedAccount, error) {
	var resp connectedAccountResponse
	err := c.apiPost(ctx, "/api/v1/connected-accounts", map[string]string{
		"connection_name": connectionName,
		"identifier":      identifier,
	}, &resp)
	if err != nil {
		return nil, err
	}

	log.LogDebugWithFields("scalekit", "Connected account resolved", map[string]any{
		"connection": connectionName,
		"account":    resp.ConnectedAccount.ID,
		"status":     resp.ConnectedAccount.Status,
	})
	return &resp.ConnectedAccount, nil
}

// ConnectedAccountAuthorizationLink asks the platform for the OAuth link
// the user opens to authorize the connector. The flow completes on the
// platform's side; connection state becomes visible on the next status
// read.
func (c *Client) ConnectedAccountAuthorizationLink(ctx context.Context, connectionName, identifier, redirectURL string) (string, error) {
	body := map[string]string{
		"connection_name": connectionName,
		"identifier":      identifier,
	}
	if redirectURL != "" {
		body["redirect_url"] = redirectURL
	}

	var resp authorizationLinkResponse
	if err := c.apiPost(ctx, "/api/v1/connected-accounts/authorization-link", body, &resp); err != nil {
		return "", err
	}
	return resp.Link, nil
}

// DeleteConnectedAccount unlinks the user's account from the connection.
// A 404 from the platform means the account is already gone, which is a
// success: disconnect is idempotent.
func (c *Client) DeleteConnectedAccount(ctx context.Context, connectionName, identifier string) error {
	path := fmt.Sprintf("/api/v1/connected-accounts?connection_name=%s&identifier=%s",
		url.QueryEscape(connectionName), url.QueryEscape(identifier))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.envURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.adminClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: "DELETE " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.LogDebugWithFields("scalekit", "Connected account already absent", map[string]any{
			"connection": connectionName,
		})
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &UpstreamError{
			Op:  "DELETE " + path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
		}
	}
	return nil
}
