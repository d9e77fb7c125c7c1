// Package config loads runtime settings for the tabchat client. Values are
// layered: defaults, then a JSON file (-c/-config), then command-line
// flags, with later sources taking precedence.
package config

import (
	"time"

	"github.com/mpetrovs/tabchat/internal/client/push"
)

// Config holds runtime settings for the tabchat client.
type Config struct {
	// ProjectID is the managed backend project hosting the document store.
	ProjectID string
	// CredentialsFile optionally points at a service-account key; empty
	// means application-default credentials.
	CredentialsFile string
	// AuthAPIKey is the web API key for the auth collaborator.
	AuthAPIKey string
	// DatabaseFile is the device-local SQLite file holding the pending
	// queue and cached session.
	DatabaseFile string
	// OnlineCheckInterval is how often the client probes backend
	// reachability.
	OnlineCheckInterval time.Duration
	// SendTimeout bounds an online send attempt before it is demoted to
	// the offline queue.
	SendTimeout time.Duration
	// PushEndpoint is the push dispatch API.
	PushEndpoint string
	// ImageHostEndpoint and ImageHostAPIKey configure the third-party
	// profile-image host.
	ImageHostEndpoint string
	ImageHostAPIKey   string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseFile = "tabchat.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SendTimeout = 10 * time.Second
	c.PushEndpoint = push.DefaultEndpoint
	c.ImageHostEndpoint = "https://api.imgbb.com/1/upload"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
