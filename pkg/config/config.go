// Package config provides configuration management for userhub.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/identkit/userhub/pkg/interfaces"
)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`

	v *viper.Viper
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// DatabaseConfig holds the credential store settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// AuthConfig holds signing-key material and work factors.
//
// JWTSecret must never be logged.
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret" validate:"required,min=16"`
	TokenExpiry time.Duration `mapstructure:"token_expiry" yaml:"token_expiry" validate:"required"`
	BcryptCost  int           `mapstructure:"bcrypt_cost" yaml:"bcrypt_cost" validate:"min=4,max=31"`

	// Optional admin identity seeded when the store is empty. All CRUD
	// routes are protected, so without it a fresh deployment has no way
	// to obtain a first token.
	BootstrapEmail    string `mapstructure:"bootstrap_email" yaml:"bootstrap_email" validate:"omitempty,email"`
	BootstrapName     string `mapstructure:"bootstrap_name" yaml:"bootstrap_name"`
	BootstrapPassword string `mapstructure:"bootstrap_password" yaml:"bootstrap_password"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in defaults. The JWT secret has no default; it
// must come from the config file or the USERHUB_AUTH_JWT_SECRET environment
// variable.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/userhub.db",
		},
		Auth: AuthConfig{
			TokenExpiry: 24 * time.Hour,
			BcryptCost:  10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and USERHUB_*
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.cors_origins", defaults.Server.CORSOrigins)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("auth.token_expiry", defaults.Auth.TokenExpiry)
	v.SetDefault("auth.bcrypt_cost", defaults.Auth.BcryptCost)
	v.SetDefault("log.level", defaults.Log.Level)

	v.SetEnvPrefix("USERHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration against its declared constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Watch reloads the configuration when the backing file changes and hands
// the fresh copy to fn. Invalid reloads are logged and dropped, keeping the
// previous configuration in effect. No-op when no file was loaded.
func (c *Config) Watch(log interfaces.Logger, fn func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		fresh := &Config{}
		if err := c.v.Unmarshal(fresh); err != nil {
			log.Warn("config reload failed", map[string]interface{}{"file": e.Name, "error": err.Error()})
			return
		}
		fresh.v = c.v
		if err := fresh.Validate(); err != nil {
			log.Warn("config reload rejected", map[string]interface{}{"file": e.Name, "error": err.Error()})
			return
		}
		log.Info("configuration reloaded", map[string]interface{}{"file": e.Name})
		fn(fresh)
	})
	c.v.WatchConfig()
}

// WriteDefault writes the default configuration as YAML, creating parent
// directories as needed.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
