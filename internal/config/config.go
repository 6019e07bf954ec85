// Package config loads the console's settings from a YAML file, an optional
// .env file and CORTEX_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nexus-station/cortex/internal/logging"
)

// Defaults applied when neither the file nor the environment set a value.
const (
	DefaultCopyFeedbackMS   = 2000
	DefaultWidth            = 80
	DefaultRequestTimeoutMS = 10000
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultLogOutput        = "stderr"

	minWidth = 20
)

// Environment variables that override file values.
const (
	EnvCopyFeedbackMS   = "CORTEX_COPY_FEEDBACK_MS"
	EnvWidth            = "CORTEX_WIDTH"
	EnvRequestTimeoutMS = "CORTEX_REQUEST_TIMEOUT_MS"
	EnvLogLevel         = "CORTEX_LOG_LEVEL"
	EnvLogFormat        = "CORTEX_LOG_FORMAT"
	EnvLogOutput        = "CORTEX_LOG_OUTPUT"
)

// Config represents the complete configuration file structure
type Config struct {
	// CopyFeedbackMS is how long the "copied" checkmark stays visible.
	CopyFeedbackMS int `yaml:"copy_feedback_ms"`
	// Width is the rendering width of a notice in cells.
	Width int `yaml:"width"`
	// RequestTimeoutMS bounds the demo probe request.
	RequestTimeoutMS int       `yaml:"request_timeout_ms"`
	Log              LogConfig `yaml:"log"`
}

// LogConfig mirrors logging.Config in file form.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		CopyFeedbackMS:   DefaultCopyFeedbackMS,
		Width:            DefaultWidth,
		RequestTimeoutMS: DefaultRequestTimeoutMS,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
	}
}

// CopyFeedback returns the copied-state window as a duration.
func (c *Config) CopyFeedback() time.Duration {
	return time.Duration(c.CopyFeedbackMS) * time.Millisecond
}

// RequestTimeout returns the probe timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// LoggingConfig converts the log section into a logging.Config.
func (c *Config) LoggingConfig() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, fmt.Errorf("invalid log configuration: %w", err)
	}
	lc := logging.DefaultConfig()
	lc.Level = level
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	if c.Log.Output != "" {
		lc.Output = c.Log.Output
	}
	return lc, nil
}

// Validate ensures every field is usable.
func (c *Config) Validate() error {
	if c.CopyFeedbackMS <= 0 {
		return fmt.Errorf("copy_feedback_ms must be positive, got %d", c.CopyFeedbackMS)
	}
	if c.Width < minWidth {
		return fmt.Errorf("width must be at least %d, got %d", minWidth, c.Width)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("request_timeout_ms must be positive, got %d", c.RequestTimeoutMS)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Manager loads and caches the configuration file.
type Manager struct {
	configPath   string
	cachedConfig *Config
	logger       *logging.Logger
}

// NewManager creates a configuration manager. An empty path selects the
// OS-appropriate default location.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine configuration path: %w", err)
		}
		path = defaultPath
	}

	return &Manager{
		configPath: path,
		logger:     logging.GetConfigLogger(),
	}, nil
}

// DefaultPath determines the OS-appropriate configuration file path
func DefaultPath() (string, error) {
	var configDir string
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		configDir = filepath.Join(xdgConfigHome, "cortex")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "cortex")
	}

	return filepath.Join(configDir, "notice.yaml"), nil
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(logger *logging.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Load reads the configuration file, falling back to defaults when it does
// not exist, then applies environment overrides and validates the result.
func (m *Manager) Load() (*Config, error) {
	if m.cachedConfig != nil {
		return m.cachedConfig, nil
	}

	cfg := Default()

	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.logger.LogConfigLoad(m.configPath, "defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	default:
		m.logger.LogConfigLoad(m.configPath, "file")
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file: %w", err)
		}
	}

	m.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration %s is invalid: %w", m.configPath, err)
	}

	m.cachedConfig = cfg
	return cfg, nil
}

// Save writes cfg to disk with owner-only permissions.
func (m *Manager) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	m.cachedConfig = cfg
	return nil
}

// GetConfigPath returns the path to the configuration file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// InvalidateCache clears the cached configuration, forcing a reload on next access
func (m *Manager) InvalidateCache() {
	m.cachedConfig = nil
}

func (m *Manager) applyEnv(cfg *Config) {
	m.envInt(EnvCopyFeedbackMS, &cfg.CopyFeedbackMS)
	m.envInt(EnvWidth, &cfg.Width)
	m.envInt(EnvRequestTimeoutMS, &cfg.RequestTimeoutMS)
	envString(EnvLogLevel, &cfg.Log.Level)
	envString(EnvLogFormat, &cfg.Log.Format)
	envString(EnvLogOutput, &cfg.Log.Output)
}

// envInt overrides *dst when key holds an integer; malformed values are
// logged and ignored.
func (m *Manager) envInt(key string, dst *int) {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		m.logger.Warn("Ignoring invalid integer override",
			"key", key,
			"value", raw,
			"error", err.Error())
		return
	}
	*dst = value
}

func envString(key string, dst *string) {
	if raw, ok := os.LookupEnv(key); ok && strings.TrimSpace(raw) != "" {
		*dst = strings.TrimSpace(raw)
	}
}

// LoadDotEnv loads variables from the given .env files (".env" when none are
// named) without overriding the existing environment. Missing files are not
// an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}
