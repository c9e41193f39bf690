package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for mls.
type Config struct {
	LibraryRoot string         `toml:"library_root"` // default scan root when the CLI gets no argument
	BaseDir     string         `toml:"base_dir"`
	LogDir      string         `toml:"log_dir"`
	Remotes     []RemoteConfig `toml:"remotes"`
	Scan        ScanConfig     `toml:"scan"`
	Tracker     TrackerConfig  `toml:"tracker"`
	History     HistoryConfig  `toml:"history"`
}

// ScanConfig holds scanner settings.
type ScanConfig struct {
	// Extensions restricts scanning to these file extensions
	// (case-insensitive, leading dot optional). Empty means the built-in
	// media defaults.
	Extensions []string `toml:"extensions"`
}

// TrackerConfig holds settings for the upload tracker database.
type TrackerConfig struct {
	Path     string `toml:"path"`               // defaults to <base_dir>/tracker.jsonl
	Autosave *bool  `toml:"autosave,omitempty"` // persist after every record; defaults to true
}

// AutosaveEnabled reports whether the tracker persists after every recorded
// outcome. Unset means true: losing at most the in-flight file on a crash
// is worth the extra writes.
func (c TrackerConfig) AutosaveEnabled() bool {
	if c.Autosave == nil {
		return true
	}
	return *c.Autosave
}

// RemoteConfig represents configuration for an upload destination.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "http", "s3", "filesystem", or "memory"
	Name string `toml:"name"`

	// HTTP-specific fields (only used when Type == "http")
	Endpoint       string `toml:"endpoint,omitempty"`
	HeadersPath    string `toml:"headers_path,omitempty"` // JSON headers file; ".age" suffix means encrypted
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // custom endpoint, switches to path-style addressing
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSLibraryRoot string `toml:"fs_library_root,omitempty"`
}

// HistoryConfig represents configuration for the run-history journal.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type HistoryConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with the provided values and default
// locations under baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Tracker: TrackerConfig{
			Path: filepath.Join(baseDir, "tracker.jsonl"),
		},
		History: HistoryConfig{
			Type:    "sqlite",
			DataDir: baseDir,
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
// This is an internal helper and should not be exported.
func writeToFile(path string, cfg *Config) error {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
