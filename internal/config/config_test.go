package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("creating temp config: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
company: "acme-hardware"
data_root: "/var/lib/paysync"
firestore:
  project_id: "acme-payroll"
  credentials_path: "/etc/paysync/key.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Company != "acme-hardware" {
		t.Errorf("Company = %q, want %q", cfg.Company, "acme-hardware")
	}
	if cfg.DataRoot != "/var/lib/paysync" {
		t.Errorf("DataRoot = %q, want %q", cfg.DataRoot, "/var/lib/paysync")
	}
	if cfg.Mode != ModeLocal {
		t.Errorf("Mode = %q, want default %q", cfg.Mode, ModeLocal)
	}
	if cfg.Firestore.ProjectID != "acme-payroll" {
		t.Errorf("ProjectID = %q, want %q", cfg.Firestore.ProjectID, "acme-payroll")
	}
}

func TestLoad_MissingCompany(t *testing.T) {
	path := writeConfig(t, `
firestore:
  project_id: "p"
  credentials_path: "/k.json"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing company, got nil")
	}
}

func TestLoad_MissingFirestoreProject(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
firestore:
  credentials_path: "/k.json"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing firestore.project_id, got nil")
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
mode: "hybrid"
firestore:
  project_id: "p"
  credentials_path: "/k.json"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid mode, got nil")
	}
}

func TestLoad_RemoteMode(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
mode: "remote"
firestore:
  project_id: "p"
  credentials_path: "/k.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != ModeRemote {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeRemote)
	}
	// Remote mode does not force a data root.
	if cfg.DataRoot != "" {
		t.Errorf("DataRoot = %q, want empty in remote mode", cfg.DataRoot)
	}
}

func TestLoad_DefaultDataRoot(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
firestore:
  project_id: "p"
  credentials_path: "/k.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataRoot == "" {
		t.Error("DataRoot should default to a non-empty path in local mode")
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
firestore:
  project_id: "p"
  credentials_path: "/k.json"
unknown_field: oops
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown config key, got nil")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_TelemetryValid(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
firestore:
  project_id: "p"
  credentials_path: "/k.json"
telemetry:
  otlp_endpoint: "localhost:4317"
  insecure: true
  service_name: "my-paysync"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telemetry == nil {
		t.Fatal("expected Telemetry to be non-nil")
	}
	if cfg.Telemetry.OTLPEndpoint != "localhost:4317" {
		t.Errorf("OTLPEndpoint = %q, want %q", cfg.Telemetry.OTLPEndpoint, "localhost:4317")
	}
	if !cfg.Telemetry.Insecure {
		t.Error("Insecure = false, want true")
	}
	if cfg.Telemetry.ServiceName != "my-paysync" {
		t.Errorf("ServiceName = %q, want %q", cfg.Telemetry.ServiceName, "my-paysync")
	}
}

func TestLoad_TelemetryMissingEndpoint(t *testing.T) {
	path := writeConfig(t, `
company: "acme"
firestore:
  project_id: "p"
  credentials_path: "/k.json"
telemetry:
  insecure: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for telemetry missing otlp_endpoint, got nil")
	}
}

func TestDefaultPath(t *testing.T) {
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Error("DefaultPath returned empty string")
	}
}
