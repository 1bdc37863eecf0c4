package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("entitlement-gate version %s, commit %s, built at %s", version, commit, date)
}

var (
	// ErrMissingCredentials is returned when the provider client credentials are absent.
	ErrMissingCredentials = errors.New("missing required provider credentials")

	// ErrInvalidConfig is returned when a configured value is outside its allowed set.
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Provider ProviderConfig `mapstructure:"provider"`
	Frontend FrontendConfig `mapstructure:"frontend"`
	Access   AccessConfig   `mapstructure:"access"`
	Session  SessionConfig  `mapstructure:"session"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Name              string        `mapstructure:"name"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// ProviderConfig describes the identity provider (Whop) the gate talks to.
type ProviderConfig struct {
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	RedirectURI     string        `mapstructure:"redirect_uri"`
	AuthURL         string        `mapstructure:"auth_url"`
	TokenURL        string        `mapstructure:"token_url"`
	ProfileURL      string        `mapstructure:"profile_url"`
	EntitlementsURL string        `mapstructure:"entitlements_url"`
	Scopes          []string      `mapstructure:"scopes"`
	CallTimeout     time.Duration `mapstructure:"call_timeout"`
}

type FrontendConfig struct {
	URL string `mapstructure:"url"`
}

// AccessConfig holds the privileged owner identity. An empty OwnerEmail disables the bypass.
type AccessConfig struct {
	OwnerEmail string `mapstructure:"owner_email"`
}

// SessionStrategy selects how a granted login reaches the session gate.
type SessionStrategy string

const (
	SessionStrategyCookie   SessionStrategy = "cookie"
	SessionStrategyDeferred SessionStrategy = "deferred"
)

// TicketStoreDriver selects the backend of the finalize ticket store.
type TicketStoreDriver string

const (
	TicketStoreMemory TicketStoreDriver = "memory"
	TicketStoreRedis  TicketStoreDriver = "redis"
)

type SessionConfig struct {
	Strategy     SessionStrategy   `mapstructure:"strategy"`
	CookieName   string            `mapstructure:"cookie_name"`
	CookieDomain string            `mapstructure:"cookie_domain"`
	TicketTTL    time.Duration     `mapstructure:"ticket_ttl"`
	TicketStore  TicketStoreDriver `mapstructure:"ticket_store"`
	Redis        RedisConfig       `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// legacyEnv maps config keys to the environment names the gate has always accepted.
var legacyEnv = map[string]string{
	"provider.client_id":     "WHOP_CLIENT_ID",
	"provider.client_secret": "WHOP_CLIENT_SECRET",
	"provider.redirect_uri":  "WHOP_REDIRECT_URI",
	"frontend.url":           "FRONTEND_URL",
	"access.owner_email":     "OWNER_EMAIL",
	"server.port":            "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.name", "FMW List Stacker Backend")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.disable_stacktrace", true)
	v.SetDefault("logging.output_path", "")
	v.SetDefault("logging.disable_console", false)

	v.SetDefault("provider.client_id", "")
	v.SetDefault("provider.client_secret", "")
	v.SetDefault("provider.redirect_uri", "https://fmw-list-stacker-backend.onrender.com/api/oauth/callback")
	v.SetDefault("provider.auth_url", "https://whop.com/oauth")
	v.SetDefault("provider.token_url", "https://api.whop.com/oauth/token")
	v.SetDefault("provider.profile_url", "https://api.whop.com/api/v2/me")
	v.SetDefault("provider.entitlements_url", "https://api.whop.com/api/v2/me/entitlements")
	v.SetDefault("provider.scopes", []string{"read_user"})
	v.SetDefault("provider.call_timeout", 10*time.Second)

	v.SetDefault("frontend.url", "https://fmw-liststackertool.netlify.app")
	v.SetDefault("access.owner_email", "")

	v.SetDefault("session.strategy", string(SessionStrategyCookie))
	v.SetDefault("session.cookie_name", "fmw_access")
	v.SetDefault("session.cookie_domain", "")
	v.SetDefault("session.ticket_ttl", 2*time.Minute)
	v.SetDefault("session.ticket_store", string(TicketStoreMemory))
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
}

// InitFlags registers command line flags on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a config file")
	fs.Int("port", 0, "HTTP listen port (overrides server.port)")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.String("session-strategy", "", "Session strategy (cookie|deferred)")
}

// Load builds the configuration from .env, the optional config file, the environment and fs.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		prefixed := "GATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return nil, err
		}
	}

	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/entitlement-gate")
	}
	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; env and flags are enough to run.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if fs != nil {
		applyFlags(&cfg, fs)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) {
	if fs.Changed("port") {
		if port, err := fs.GetInt("port"); err == nil {
			cfg.Server.Port = port
		}
	}
	if fs.Changed("log-level") {
		if level, err := fs.GetString("log-level"); err == nil {
			cfg.Logging.Level = level
		}
	}
	if fs.Changed("session-strategy") {
		if strategy, err := fs.GetString("session-strategy"); err == nil {
			cfg.Session.Strategy = SessionStrategy(strategy)
		}
	}
}

func (c *Config) normalize() {
	c.Frontend.URL = strings.TrimRight(strings.TrimSpace(c.Frontend.URL), "/")
	c.Access.OwnerEmail = strings.TrimSpace(c.Access.OwnerEmail)
	c.Provider.ClientID = strings.TrimSpace(c.Provider.ClientID)
	c.Provider.ClientSecret = strings.TrimSpace(c.Provider.ClientSecret)

	// Env values arrive as a single comma separated string.
	var scopes []string
	for _, s := range c.Provider.Scopes {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				scopes = append(scopes, part)
			}
		}
	}
	c.Provider.Scopes = scopes
}

// Validate checks that the configuration can run the gate.
func (c *Config) Validate() error {
	var missing []string
	if c.Provider.ClientID == "" {
		missing = append(missing, "provider.client_id (WHOP_CLIENT_ID)")
	}
	if c.Provider.ClientSecret == "" {
		missing = append(missing, "provider.client_secret (WHOP_CLIENT_SECRET)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if c.Provider.RedirectURI == "" {
		return fmt.Errorf("%w: provider.redirect_uri is required", ErrInvalidConfig)
	}
	if c.Frontend.URL == "" {
		return fmt.Errorf("%w: frontend.url is required", ErrInvalidConfig)
	}
	if c.Provider.CallTimeout <= 0 {
		return fmt.Errorf("%w: provider.call_timeout must be positive", ErrInvalidConfig)
	}

	switch c.Session.Strategy {
	case SessionStrategyCookie, SessionStrategyDeferred:
	default:
		return fmt.Errorf("%w: unsupported session.strategy %q", ErrInvalidConfig, c.Session.Strategy)
	}
	switch c.Session.TicketStore {
	case TicketStoreMemory, TicketStoreRedis:
	default:
		return fmt.Errorf("%w: unsupported session.ticket_store %q", ErrInvalidConfig, c.Session.TicketStore)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("%w: session.cookie_name is required", ErrInvalidConfig)
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
