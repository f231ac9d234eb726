package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to resolve "today" and to anchor
	// exported event times (e.g. "Europe/Berlin"). Empty means the process
	// local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// StorePath is the JSON file holding the persisted events collection.
	StorePath string `yaml:"store_path" json:"store_path"`

	// BackupDir receives timestamped snapshots of the store file.
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`

	// BackupCron is a cron-style schedule string (e.g. "0 * * * *") for
	// periodic store snapshots. Empty disables scheduled backups.
	BackupCron string `yaml:"backup_cron" json:"backup_cron"`

	// DefaultEventTime is the HH:MM time a blank editor draft starts with.
	DefaultEventTime string `yaml:"default_event_time" json:"default_event_time"`

	// CalendarName labels ICS exports (X-WR-CALNAME).
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		Timezone:         "",
		StorePath:        "./data/events.json",
		BackupDir:        "./data/backup",
		BackupCron:       "",
		DefaultEventTime: "09:00",
		CalendarName:     "schedcal",
		BasicAuth:        nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.StorePath == "" {
		c.StorePath = "./data/events.json"
	}
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(filepath.Dir(c.StorePath), "backup")
	}
	if c.DefaultEventTime == "" {
		c.DefaultEventTime = "09:00"
	}
	if c.CalendarName == "" {
		c.CalendarName = "schedcal"
	}
}

// ApplyEnv lets SCHEDCAL_* environment variables override file values.
// godotenv in cmd/schedcal populates the environment before this runs.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SCHEDCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("SCHEDCAL_STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("SCHEDCAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".schedcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
