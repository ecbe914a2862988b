package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: smashpoint
  environment: production
  port: 9090
  log_level: warn
store:
  filename: /var/lib/smashpoint/data.db
venue:
  default_phone_region: GB
snapshot:
  enabled: true
  at: "03:30"
operators:
  - name: sam
    role: admin
  - name: dana
    role: staff
    capabilities: [manage_bookings, view_reports]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9090 || cfg.App.LogLevel != "warn" {
		t.Errorf("app config = %+v", cfg.App)
	}
	if cfg.Store.Filename != "/var/lib/smashpoint/data.db" {
		t.Errorf("store filename = %s", cfg.Store.Filename)
	}
	if !cfg.Snapshot.Enabled || cfg.Snapshot.At != "03:30" {
		t.Errorf("snapshot config = %+v", cfg.Snapshot)
	}
	if len(cfg.Operators) != 2 || len(cfg.Operators[1].Capabilities) != 2 {
		t.Errorf("operators = %+v", cfg.Operators)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
operators:
  - name: admin
    role: admin
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.App.Port)
	}
	if cfg.Store.Filename != "data/smashpoint.db" {
		t.Errorf("default store filename = %s", cfg.Store.Filename)
	}
	if cfg.Venue.DefaultPhoneRegion != "US" {
		t.Errorf("default region = %s", cfg.Venue.DefaultPhoneRegion)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"no operators", "app:\n  port: 8080\n"},
		{"unnamed operator", "operators:\n  - role: admin\n"},
		{"duplicate operator", "operators:\n  - name: sam\n    role: admin\n  - name: sam\n    role: staff\n"},
		{"bad port", "app:\n  port: 70000\noperators:\n  - name: admin\n    role: admin\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.contents)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
