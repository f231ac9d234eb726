package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "schedcal.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.DefaultEventTime != "09:00" {
		t.Errorf("default_event_time = %q", cfg.DefaultEventTime)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedcal.yaml")

	want := DefaultConfig()
	want.Listen = "0.0.0.0:9000"
	want.Timezone = "Europe/Berlin"
	want.StorePath = "/var/lib/schedcal/events.json"
	want.BackupCron = "0 * * * *"
	want.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Listen != want.Listen || got.Timezone != want.Timezone || got.StorePath != want.StorePath {
		t.Errorf("got %+v", got)
	}
	if got.BackupCron != want.BackupCron {
		t.Errorf("backup_cron = %q", got.BackupCron)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "admin" {
		t.Errorf("basic_auth = %+v", got.BasicAuth)
	}
}

func TestNormalizeFillsBlanks(t *testing.T) {
	cfg := &Config{StorePath: "/data/events.json"}
	cfg.Normalize()

	if cfg.Listen == "" {
		t.Error("listen should be defaulted")
	}
	if cfg.BackupDir != filepath.Join("/data", "backup") {
		t.Errorf("backup_dir = %q", cfg.BackupDir)
	}
	if cfg.DefaultEventTime != "09:00" {
		t.Errorf("default_event_time = %q", cfg.DefaultEventTime)
	}
	if cfg.CalendarName != "schedcal" {
		t.Errorf("calendar_name = %q", cfg.CalendarName)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SCHEDCAL_LISTEN", "127.0.0.1:7000")
	t.Setenv("SCHEDCAL_STORE_PATH", "/tmp/ev.json")
	t.Setenv("SCHEDCAL_TIMEZONE", "UTC")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Listen != "127.0.0.1:7000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.StorePath != "/tmp/ev.json" {
		t.Errorf("store_path = %q", cfg.StorePath)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("timezone = %q", cfg.Timezone)
	}
}
