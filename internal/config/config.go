package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DirName is the name of the per-user and per-folder config directory.
const DirName = ".invoicename"

// Config holds application configuration.
type Config struct {
	// BackendURL is the base URL of the rename backend service.
	BackendURL string `json:"backend_url,omitempty"`

	// RequestTimeoutSeconds bounds each backend request. Enforced by the transport, not the pipeline.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// UseBridge executes renames on the local filesystem through the bridge
	// instead of asking the backend to commit them.
	UseBridge bool `json:"use_bridge,omitempty"`

	// Template is the default filename template.
	Template string `json:"template,omitempty"`

	// LogLevel is one of: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// LogFile receives JSON logs. Empty means stderr.
	LogFile string `json:"log_file,omitempty"`

	// DisableJournal turns off the SQLite rename journal written by the bridge.
	DisableJournal bool `json:"disable_journal,omitempty"`

	// PreviewMaxBytes caps the size of files read for preview.
	PreviewMaxBytes int64 `json:"preview_max_bytes,omitempty"`

	// RenameRetries is how many times the bridge attempts a rename while the file is in use.
	RenameRetries int `json:"rename_retries,omitempty"`

	// RenameRetryDelayMS is the pause between in-use retries.
	RenameRetryDelayMS int `json:"rename_retry_delay_ms,omitempty"`

	// Listen is the address the reference backend binds to.
	Listen string `json:"listen,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BackendURL:            "http://127.0.0.1:8765",
		RequestTimeoutSeconds: 120,
		Template:              "{date}-{category}-{amount}",
		LogLevel:              "info",
		PreviewMaxBytes:       20 * 1024 * 1024,
		RenameRetries:         10,
		RenameRetryDelayMS:    180,
		Listen:                "127.0.0.1:8765",
	}
}

// RequestTimeout returns the backend request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// RenameRetryDelay returns the pause between in-use retries.
func (c *Config) RenameRetryDelay() time.Duration {
	return time.Duration(c.RenameRetryDelayMS) * time.Millisecond
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.invoicename.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithFolder loads the global config and overlays the nearest
// .invoicename/config.json found walking upward from startDir, so an
// invoice folder can carry its own template.
func LoadWithFolder(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	folder, err := loadFileRaw(FindFolderConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), folder), nil
}

// FindFolderConfig walks upward from startDir to find the nearest .invoicename/config.json.
// Returns the path if found, or empty string if not found.
func FindFolderConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		BackendURL:            pick(overlay.BackendURL, base.BackendURL),
		RequestTimeoutSeconds: pick(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds),
		Template:              pick(overlay.Template, base.Template),
		LogLevel:              pick(overlay.LogLevel, base.LogLevel),
		LogFile:               pick(overlay.LogFile, base.LogFile),
		PreviewMaxBytes:       pick(overlay.PreviewMaxBytes, base.PreviewMaxBytes),
		RenameRetries:         pick(overlay.RenameRetries, base.RenameRetries),
		RenameRetryDelayMS:    pick(overlay.RenameRetryDelayMS, base.RenameRetryDelayMS),
		Listen:                pick(overlay.Listen, base.Listen),
	}

	// Booleans: overlay wins if true, else base
	result.UseBridge = base.UseBridge || overlay.UseBridge
	result.DisableJournal = base.DisableJournal || overlay.DisableJournal

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay if non-zero, else base.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
