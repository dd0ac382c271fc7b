package config

import (
	"flag"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/thatsimonsguy/qivivo-client/internal/remote"
)

const (
	defaultBaseURL        = remote.DefaultBaseURL
	defaultTokenURL       = remote.DefaultTokenURL
	defaultScopes         = remote.DefaultScopes
	defaultTimeoutSeconds = 10
	defaultServerTimezone = "Europe/Paris"
	defaultAgentAddr      = "127.0.0.1:8125"
	defaultNamespace      = "qivivo."
)

type API struct {
	BaseURL        string `yaml:"base_url"`
	TokenURL       string `yaml:"token_url"`
	Scopes         string `yaml:"scopes"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ServerTimezone string `yaml:"server_timezone"`
}

type Credentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type Registry struct {
	// WarmUp refreshes every device right after discovery. Defaults to true.
	WarmUp *bool `yaml:"warm_up"`
}

type Datadog struct {
	Enabled   bool     `yaml:"enabled"`
	AgentAddr string   `yaml:"agent_addr"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags"`
}

type Journal struct {
	// Path of the SQLite reading journal. Empty disables it.
	Path string `yaml:"path"`
}

type Config struct {
	ConfigFile string
	LogLevel   zerolog.Level
	LogFile    string

	API         API         `yaml:"api"`
	Credentials Credentials `yaml:"credentials"`
	Registry    Registry    `yaml:"registry"`
	Datadog     Datadog     `yaml:"datadog"`
	Journal     Journal     `yaml:"journal"`

	// Location is API.ServerTimezone, loaded.
	Location *time.Location `yaml:"-"`
}

// Load parses args (without the program name), reads the config file they point at and
// applies environment overrides. Invalid configuration panics.
func Load(args []string) Config {
	var cfg Config
	var logLevel, journal string

	fs := flag.NewFlagSet("qivivo", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config-file", "config.yaml", "Path to client config file")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Append logs to this file instead of stderr")
	fs.StringVar(&journal, "journal", "", "Path to the SQLite reading journal (overrides journal.path)")
	if err := fs.Parse(args); err != nil {
		panic("Failed to parse flags: " + err.Error())
	}

	cfg.LogLevel = parseLogLevel(logLevel)

	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	if journal != "" {
		cfg.Journal.Path = journal
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	cfg.validate()
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QIVIVO_CLIENT_ID"); v != "" {
		cfg.Credentials.ClientID = v
	}
	if v := os.Getenv("QIVIVO_CLIENT_SECRET"); v != "" {
		cfg.Credentials.ClientSecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultBaseURL
	}
	if cfg.API.TokenURL == "" {
		cfg.API.TokenURL = defaultTokenURL
	}
	if cfg.API.Scopes == "" {
		cfg.API.Scopes = defaultScopes
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = defaultTimeoutSeconds
	}
	if cfg.API.ServerTimezone == "" {
		cfg.API.ServerTimezone = defaultServerTimezone
	}
	if cfg.Registry.WarmUp == nil {
		warmUp := true
		cfg.Registry.WarmUp = &warmUp
	}
	if cfg.Datadog.AgentAddr == "" {
		cfg.Datadog.AgentAddr = defaultAgentAddr
	}
	if cfg.Datadog.Namespace == "" {
		cfg.Datadog.Namespace = defaultNamespace
	}
}

// Timeout is the per-request HTTP timeout.
func (cfg Config) Timeout() time.Duration {
	return time.Duration(cfg.API.TimeoutSeconds) * time.Second
}

func (cfg Config) WarmUp() bool {
	return cfg.Registry.WarmUp == nil || *cfg.Registry.WarmUp
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	var missing []string
	if cfg.Credentials.ClientID == "" {
		missing = append(missing, "credentials.client_id")
	}
	if cfg.Credentials.ClientSecret == "" {
		missing = append(missing, "credentials.client_secret")
	}
	if len(missing) > 0 {
		panic("Missing required config fields: " + strings.Join(missing, ", "))
	}

	if cfg.API.TimeoutSeconds < 0 {
		panic("api.timeout_seconds must not be negative")
	}

	loc, err := time.LoadLocation(cfg.API.ServerTimezone)
	if err != nil {
		panic("Unknown api.server_timezone " + cfg.API.ServerTimezone + ": " + err.Error())
	}
	cfg.Location = loc
}
