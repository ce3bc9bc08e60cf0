package scalekit

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the signed attributes extracted from a validated token.
type Claims struct {
	jwt.RegisteredClaims

	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`

	// Organization id claims. Tokens carry the current organization under
	// different names depending on the token type.
	OID            string `json:"oid,omitempty"`
	OrgID          string `json:"org_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// CurrentOrganizationID resolves the current-org claim through the
// fallback chain oid, org_id, organization_id.
func (c *Claims) CurrentOrganizationID() string {
	if c.OID != "" {
		return c.OID
	}
	if c.OrgID != "" {
		return c.OrgID
	}
	return c.OrganizationID
}

// DisplayName resolves a presentable name: full name, then the given and
// family names joined, then the preferred username, then the email.
func (c *Claims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if name := strings.TrimSpace(c.GivenName + " " + c.FamilyName); name != "" {
		return name
	}
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Email
}
