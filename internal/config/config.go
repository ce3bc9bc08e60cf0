// Package config loads service configuration from environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StoreKind selects the session store backend.
type StoreKind string

const (
	StoreKindMemory    StoreKind = "memory"
	StoreKindFirestore StoreKind = "firestore"
)

// Config holds everything the service needs at startup.
type Config struct {
	// Scalekit environment, e.g. https://yourapp.scalekit.dev
	EnvURL       string `env:"SCALEKIT_ENV_URL"`
	ClientID     string `env:"SCALEKIT_CLIENT_ID"`
	ClientSecret Secret `env:"SCALEKIT_CLIENT_SECRET"`
	RedirectURI  string `env:"SCALEKIT_REDIRECT_URI"`
	Scopes       string `env:"SCALEKIT_SCOPES"`

	Addr           string        `env:"ADDR" envDefault:":8000"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	SessionStore        StoreKind `env:"SESSION_STORE" envDefault:"memory"`
	FirestoreProjectID  string    `env:"FIRESTORE_PROJECT_ID"`
	FirestoreDatabase   string    `env:"FIRESTORE_DATABASE"`
	FirestoreCollection string    `env:"FIRESTORE_COLLECTION" envDefault:"org_switcher_sessions"`
}

// Load reads and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.EnvURL == "" {
		return nil, fmt.Errorf("SCALEKIT_ENV_URL is not set")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("SCALEKIT_CLIENT_ID is not set")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("SCALEKIT_CLIENT_SECRET is not set")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("SCALEKIT_REDIRECT_URI is not set")
	}
	cfg.EnvURL = strings.TrimRight(cfg.EnvURL, "/")

	switch cfg.SessionStore {
	case StoreKindMemory:
	case StoreKindFirestore:
		if cfg.FirestoreProjectID == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT_ID is required when SESSION_STORE=firestore")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE: %s", cfg.SessionStore)
	}

	return &cfg, nil
}

// ScopeList returns the configured OAuth scopes, falling back to the
// defaults used for Scalekit full-stack auth.
func (c *Config) ScopeList() []string {
	if strings.TrimSpace(c.Scopes) == "" {
		return []string{"openid", "profile", "email", "offline_access"}
	}
	return strings.Fields(c.Scopes)
}

// PostLogoutRedirectURI derives the front-end landing page from the
// callback URI by stripping the callback path.
func (c *Config) PostLogoutRedirectURI() string {
	return strings.TrimSuffix(c.RedirectURI, "/auth/callback")
}
