package scalekit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimsCurrentOrganizationID(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{"oid wins", Claims{OID: "org_1", OrgID: "org_2", OrganizationID: "org_3"}, "org_1"},
		{"org_id next", Claims{OrgID: "org_2", OrganizationID: "org_3"}, "org_2"},
		{"organization_id last", Claims{OrganizationID: "org_3"}, "org_3"},
		{"nothing", Claims{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.CurrentOrganizationID())
		})
	}
}

func TestClaimsDisplayName(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{"full name wins", Claims{Name: "Jane Doe", GivenName: "J", Email: "j@x.com"}, "Jane Doe"},
		{"given and family joined", Claims{GivenName: "Jane", FamilyName: "Doe"}, "Jane Doe"},
		{"given name alone", Claims{GivenName: "Jane"}, "Jane"},
		{"preferred username", Claims{PreferredUsername: "janed"}, "janed"},
		{"email as last resort", Claims{Email: "jane@example.com"}, "jane@example.com"},
		{"nothing", Claims{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.DisplayName())
		})
	}
}
