// Package connector exposes the configured third-party connectors and
// resolves each user's connection state against the identity platform.
// The service holds no state of its own; every read re-queries the
// platform, keyed by (user email, connection name).
package connector

// Definition describes one configured connector.
type Definition struct {
	// Name is the identifier used in API paths and request bodies.
	Name string

	// ConnectionName is the platform-side connection this connector
	// maps to.
	ConnectionName string

	DisplayName string
	Description string
	Icon        string
}

// Connector is the API representation of a connector plus the current
// user's connection state.
type Connector struct {
	ConnectorName string `json:"connector_name"`
	DisplayName   string `json:"display_name"`
	Description   string `json:"description"`
	Icon          string `json:"icon,omitempty"`
	Connected     bool   `json:"connected"`
	Status        string `json:"status"`
	AccountID     string `json:"account_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// DefaultCatalog lists the connectors this demo ships with.
func DefaultCatalog() []Definition {
	return []Definition{
		{
			Name:           "github",
			ConnectionName: "github",
			DisplayName:    "GitHub",
			Description:    "Access repositories, issues, and pull requests",
			Icon:           "github",
		},
		{
			Name:           "slack",
			ConnectionName: "slack",
			DisplayName:    "Slack",
			Description:    "Send messages and read channels",
			Icon:           "slack",
		},
		{
			Name:           "google_ads",
			ConnectionName: "google_ads",
			DisplayName:    "Google Ads",
			Description:    "Manage campaigns and reporting",
			Icon:           "google-ads",
		},
	}
}
