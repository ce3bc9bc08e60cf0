package scalekit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/session"
)

// apiGet performs an authenticated GET against the platform admin API
// and decodes the JSON body into out.
func (c *Client) apiGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.envURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.adminClient.Do(req)
	if err != nil {
		return &UpstreamError{Op: "GET " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &UpstreamError{
			Op:  "GET " + path,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: "GET " + path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

type userResponse struct {
	User struct {
		Memberships []struct {
			OrganizationID   string `json:"organization_id"`
			OrganizationName string `json:"organization_name"`
		} `json:"memberships"`
	} `json:"user"`
}

type organizationResponse struct {
	Organization struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"organization"`
}

// UserOrganizations lists the organizations the user is a member of.
// Display names are resolved through the organization API, falling back
// to the membership's organization name or the raw id when the lookup
// fails. The caller computes is_current against the session.
func (c *Client) UserOrganizations(ctx context.Context, userID string) ([]session.Organization, error) {
	var resp userResponse
	if err := c.apiGet(ctx, "/api/v1/users/"+userID, &resp); err != nil {
		return nil, err
	}

	orgs := make([]session.Organization, 0, len(resp.User.Memberships))
	for _, m := range resp.User.Memberships {
		if m.OrganizationID == "" {
			continue
		}

		displayName := m.OrganizationName
		if details, err := c.organizationDetails(ctx, m.OrganizationID); err != nil {
			log.LogWarnWithFields("scalekit", "Organization lookup failed", map[string]any{
				"organization": m.OrganizationID,
				"error":        err.Error(),
			})
		} else if details.DisplayName != "" {
			displayName = details.DisplayName
		}
		if displayName == "" {
			displayName = m.OrganizationID
		}

		orgs = append(orgs, session.Organization{
			ID:          m.OrganizationID,
			DisplayName: displayName,
		})
	}
	return orgs, nil
}

func (c *Client) organizationDetails(ctx context.Context, orgID string) (*session.Organization, error) {
	var resp organizationResponse
	if err := c.apiGet(ctx, "/api/v1/organizations/"+orgID, &resp); err != nil {
		return nil, err
	}
	return &session.Organization{
		ID:          resp.Organization.ID,
		DisplayName: resp.Organization.DisplayName,
	}, nil
}
