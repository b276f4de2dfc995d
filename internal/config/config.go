// ABOUTME: Configuration loading and parsing for coven-mailer
// ABOUTME: Supports TOML or YAML files with environment variable expansion and defaults

package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load before validation.
const (
	DefaultSMTPHost     = "smtp.gmail.com"
	DefaultSMTPPort     = 587
	DefaultSubject      = "Сообщение от Matrix-бота"
	DefaultSMTPTimeout  = 30 * time.Second
	DefaultStartCommand = "/start"
	DefaultMetricsAddr  = "127.0.0.1:9464"
	DefaultDatabaseFile = "logs.db"
)

// Config represents the complete coven-mailer configuration
type Config struct {
	Matrix   MatrixConfig   `toml:"matrix" yaml:"matrix"`
	SMTP     SMTPConfig     `toml:"smtp" yaml:"smtp"`
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Bot      BotConfig      `toml:"bot" yaml:"bot"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// MatrixConfig holds the bot account on the Matrix homeserver
type MatrixConfig struct {
	Homeserver  string `toml:"homeserver" yaml:"homeserver"`
	UserID      string `toml:"user_id" yaml:"user_id"`
	AccessToken string `toml:"access_token" yaml:"access_token"`
}

// SMTPConfig holds the outbound mail submission settings
type SMTPConfig struct {
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`

	// From is the sender address; defaults to Username.
	From    string `toml:"from" yaml:"from"`
	Subject string `toml:"subject" yaml:"subject"`

	Timeout    time.Duration `toml:"-" yaml:"-"`
	TimeoutRaw string        `toml:"timeout" yaml:"timeout"`
}

// DatabaseConfig holds the audit log location
type DatabaseConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// BotConfig controls which messages the bot reacts to
type BotConfig struct {
	// Only respond in these rooms (empty = all joined rooms)
	AllowedRooms []string `toml:"allowed_rooms" yaml:"allowed_rooms"`
	// Require messages start with this prefix (empty = respond to all)
	CommandPrefix   string `toml:"command_prefix" yaml:"command_prefix"`
	StartCommand    string `toml:"start_command" yaml:"start_command"`
	AutoJoin        bool   `toml:"auto_join" yaml:"auto_join"`
	TypingIndicator bool   `toml:"typing_indicator" yaml:"typing_indicator"`
}

// MetricsConfig holds the Prometheus listener settings
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" yaml:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// DefaultPath returns the config file location.
// Priority: COVEN_MAILER_CONFIG env var > XDG_CONFIG_HOME/coven/mailer.toml > ~/.config/coven/mailer.toml
func DefaultPath() string {
	if envPath := os.Getenv("COVEN_MAILER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "mailer.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "mailer.toml")
}

// DefaultDataDir returns the data directory.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func DefaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "coven")
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
// Environment variables in the format ${VAR_NAME} are expanded before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(string(data), formatFor(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Format selects the decoder used by Parse.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Parse decodes raw config text, applies defaults and validates the result.
func Parse(raw string, format Format) (*Config, error) {
	expanded := expandEnvVars(raw)

	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.SMTP.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.SMTP.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing smtp.timeout %q: %w", cfg.SMTP.TimeoutRaw, err)
		}
		cfg.SMTP.Timeout = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SMTP.Host == "" {
		c.SMTP.Host = DefaultSMTPHost
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = DefaultSMTPPort
	}
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	if c.SMTP.Subject == "" {
		c.SMTP.Subject = DefaultSubject
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = DefaultSMTPTimeout
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(DefaultDataDir(), DefaultDatabaseFile)
	}
	if c.Bot.StartCommand == "" {
		c.Bot.StartCommand = DefaultStartCommand
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil {
		return fmt.Errorf("matrix.homeserver is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("matrix.homeserver must use http or https scheme")
	}
	if c.Matrix.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if !strings.HasPrefix(c.Matrix.UserID, "@") || !strings.Contains(c.Matrix.UserID, ":") {
		return fmt.Errorf("matrix.user_id must look like @user:server")
	}
	if c.Matrix.AccessToken == "" {
		return fmt.Errorf("matrix.access_token is required")
	}

	if c.SMTP.Username == "" {
		return fmt.Errorf("smtp.username is required")
	}
	if c.SMTP.Password == "" {
		return fmt.Errorf("smtp.password is required")
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d is out of range", c.SMTP.Port)
	}
	if _, err := mail.ParseAddress(c.SMTP.From); err != nil {
		return fmt.Errorf("smtp.from %q is not a valid address: %w", c.SMTP.From, err)
	}
	if c.SMTP.Timeout < 0 {
		return fmt.Errorf("smtp.timeout must not be negative")
	}

	if strings.TrimSpace(c.Bot.StartCommand) == "" {
		return fmt.Errorf("bot.start_command must not be blank")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	return nil
}
