// Package config loads and validates the paysync YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Mode selects where entity stores read and write their primary data.
type Mode string

const (
	// ModeLocal is the desktop mode: JSON files under DataRoot are the source
	// of truth and sync pushes/pulls against Firestore.
	ModeLocal Mode = "local"

	// ModeRemote is the web mode: Firestore is the only store, there is no
	// local file system, and the activity logger is disabled.
	ModeRemote Mode = "remote"
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// Company is the tenant identifier partitioning all remote documents.
	// Required: no sync operation runs without a resolved scope.
	Company string `yaml:"company"`

	// DataRoot is the directory holding the local entity files and the
	// activity log. Defaults to ~/.local/share/paysync. Ignored in remote mode.
	DataRoot string `yaml:"data_root"`

	// Mode is "local" (desktop, default) or "remote" (web).
	Mode Mode `yaml:"mode"`

	// Firestore configures the remote document store.
	Firestore FirestoreConfig `yaml:"firestore"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// FirestoreConfig holds the Firebase project settings.
type FirestoreConfig struct {
	// ProjectID is the Firebase/GCP project hosting the document store.
	ProjectID string `yaml:"project_id"`

	// CredentialsPath points to the service-account key JSON file.
	CredentialsPath string `yaml:"credentials_path"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "paysync".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request, e.g. Authorization: "Bearer <token>".
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/paysync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "paysync", "config.yaml"), nil
}

// DefaultDataRoot returns the default local data directory:
// ~/.local/share/paysync.
func DefaultDataRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "paysync"), nil
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required fields are present and well-formed,
// filling defaults where the field is optional.
func (c *Config) validate() error {
	if c.Company == "" {
		return fmt.Errorf("company is required")
	}

	switch c.Mode {
	case "":
		c.Mode = ModeLocal
	case ModeLocal, ModeRemote:
	default:
		return fmt.Errorf("mode %q must be %q or %q", c.Mode, ModeLocal, ModeRemote)
	}

	if c.Mode == ModeLocal && c.DataRoot == "" {
		root, err := DefaultDataRoot()
		if err != nil {
			return err
		}
		c.DataRoot = root
	}

	if c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.project_id is required")
	}
	if c.Firestore.CredentialsPath == "" {
		return fmt.Errorf("firestore.credentials_path is required")
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
