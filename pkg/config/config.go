// Package config builds the single configuration value of the boarding
// service. It is read once at start up from the environment and an optional
// YAML file, then passed explicitly to every collaborator.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvProduction = "production"
	EnvQA         = "qa"
	EnvSandbox    = "sandbox"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQL    = "sql"

	IdentityFingerprint = "fingerprint"
	IdentitySession     = "session"
)

var (
	ErrMissingToken       = errors.New("config: api token is required")
	ErrMissingEntryPoint  = errors.New("config: entry point is required")
	ErrUnknownEnvironment = errors.New("config: unknown environment")
	ErrUnknownStorage     = errors.New("config: unknown storage backend")
	ErrMissingSecret      = errors.New("config: session secret is required in session mode")
)

type Config struct {
	Environment    string         `mapstructure:"environment"`
	APIToken       string         `mapstructure:"api_token"`
	EntryPoint     string         `mapstructure:"entry_point"`
	BaseURL        string         `mapstructure:"base_url"`
	Listen         string         `mapstructure:"listen"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	IPLookupURL    string         `mapstructure:"ip_lookup_url"`
	LogLevel       string         `mapstructure:"log_level"`
	LogFormat      string         `mapstructure:"log_format"`
	Storage        StorageConfig  `mapstructure:"storage"`
	Identity       IdentityConfig `mapstructure:"identity"`
	Theme          ThemeConfig    `mapstructure:"theme"`
}

type StorageConfig struct {
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	SQLDSN        string `mapstructure:"sql_dsn"`
	// Seal encrypts snapshots with a key derived from their identifier.
	Seal bool `mapstructure:"seal"`
}

type IdentityConfig struct {
	Mode          string `mapstructure:"mode"`
	SessionSecret string `mapstructure:"session_secret"`
	SessionCookie string `mapstructure:"session_cookie"`
	LoginPath     string `mapstructure:"login_path"`
}

type ThemeConfig struct {
	Name    string `mapstructure:"name"`
	Variant string `mapstructure:"variant"`
}

var defaults = map[string]any{
	"environment":             EnvSandbox,
	"api_token":               "",
	"entry_point":             "",
	"base_url":                "",
	"listen":                  ":8080",
	"request_timeout":         30 * time.Second,
	"ip_lookup_url":           "https://api.ipify.org?format=json",
	"log_level":               "info",
	"log_format":              "json",
	"storage.backend":         StorageMemory,
	"storage.redis_addr":      "localhost:6379",
	"storage.redis_password":  "",
	"storage.redis_db":        0,
	"storage.key_prefix":      "boarding:form:",
	"storage.sql_dsn":         "",
	"storage.seal":            false,
	"identity.mode":           IdentityFingerprint,
	"identity.session_secret": "",
	"identity.session_cookie": "session",
	"identity.login_path":     "/login",
	"theme.name":              "default",
	"theme.variant":           "light",
}

// NewViper returns a viper instance with defaults and environment bindings.
// Every key reads BOARDING_<KEY> ("storage.backend" reads
// BOARDING_STORAGE_BACKEND); the credentials also accept their PAYABLI_ names.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("BOARDING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("environment", "BOARDING_ENVIRONMENT", "PAYABLI_ENV")
	_ = v.BindEnv("api_token", "BOARDING_API_TOKEN", "PAYABLI_API_TOKEN")
	_ = v.BindEnv("entry_point", "BOARDING_ENTRY_POINT", "PAYABLI_ENTRY")
	return v
}

// Load reads the environment and, when path is not empty, a YAML file.
func Load(path string) (Config, error) {
	v := NewViper()
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes a prepared viper instance. Command line flags bound by
// the caller take precedence over file and environment values.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Identity.Mode = strings.ToLower(strings.TrimSpace(cfg.Identity.Mode))
	return cfg, nil
}

// Validate checks the values every external call depends on.
func (c Config) Validate() error {
	var errs []error
	switch c.Environment {
	case EnvProduction, EnvQA, EnvSandbox:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownEnvironment, c.Environment))
	}
	if strings.TrimSpace(c.APIToken) == "" {
		errs = append(errs, ErrMissingToken)
	}
	if strings.TrimSpace(c.EntryPoint) == "" {
		errs = append(errs, ErrMissingEntryPoint)
	}
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis, StorageSQL:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownStorage, c.Storage.Backend))
	}
	if c.Identity.Mode == IdentitySession && strings.TrimSpace(c.Identity.SessionSecret) == "" {
		errs = append(errs, ErrMissingSecret)
	}
	return errors.Join(errs...)
}

// HostPrefix maps the environment to the API hostname prefix. Unknown values
// fall back to the sandbox prefix.
func (c Config) HostPrefix() string {
	switch c.Environment {
	case EnvProduction:
		return ""
	case EnvQA:
		return "-qa"
	default:
		return "-sandbox"
	}
}

// APIBaseURL returns the root of the external boarding API, always ending in
// a slash.
func (c Config) APIBaseURL() string {
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		return strings.TrimRight(base, "/") + "/"
	}
	return fmt.Sprintf("https://api%s.payabli.com/api/", c.HostPrefix())
}

// SessionMode reports whether identities come from authenticated sessions.
func (c Config) SessionMode() bool {
	return c.Identity.Mode == IdentitySession
}
