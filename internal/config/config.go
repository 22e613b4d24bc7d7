// Package config loads pokersync settings from defaults, an optional TOML
// file and POKERSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".pokersync"
	envPrefix  = "POKERSYNC"

	ServerURLKey     = "server.url"
	ListenKey        = "server.listen"
	SeatsKey         = "server.seats"
	MaxRetriesKey    = "connection.max_retries"
	RetryBackoffKey  = "connection.retry_backoff"
	DialTimeoutKey   = "connection.dial_timeout"
	WriteTimeoutKey  = "connection.write_timeout"
	configFileMode   = 0o600
	configDirMode    = 0o700
	defaultServerURL = "ws://127.0.0.1:8081/poker_game/game"
)

// Config holds every setting.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Connection ConnectionConfig `toml:"connection"`
}

// ServerConfig: where to connect, and how the dev server listens.
type ServerConfig struct {
	URL    string `toml:"url"`
	Listen string `toml:"listen"`
	Seats  int    `toml:"seats"`
}

// ConnectionConfig tunes the connection manager.
type ConnectionConfig struct {
	MaxRetries   int           `toml:"max_retries"`
	RetryBackoff time.Duration `toml:"retry_backoff"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:    defaultServerURL,
			Listen: "127.0.0.1:8081",
			Seats:  4,
		},
		Connection: ConnectionConfig{
			MaxRetries:   3,
			RetryBackoff: time.Second,
			DialTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Second,
		},
	}
}

// DefaultPath is $HOME/.pokersync/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configName+"."+configType), nil
}

// Load reads settings into cfg (a fresh viper.Viper if nil). An explicit
// path must exist; otherwise a missing default file is not an error.
func Load(cfg *viper.Viper, path string) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	def := Default()
	cfg.SetDefault(ServerURLKey, def.Server.URL)
	cfg.SetDefault(ListenKey, def.Server.Listen)
	cfg.SetDefault(SeatsKey, def.Server.Seats)
	cfg.SetDefault(MaxRetriesKey, def.Connection.MaxRetries)
	cfg.SetDefault(RetryBackoffKey, def.Connection.RetryBackoff)
	cfg.SetDefault(DialTimeoutKey, def.Connection.DialTimeout)
	cfg.SetDefault(WriteTimeoutKey, def.Connection.WriteTimeout)

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if path != "" {
		cfg.SetConfigFile(path)
	} else {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		if homeDir, err := os.UserHomeDir(); err == nil {
			cfg.AddConfigPath(filepath.Join(homeDir, configDir))
		}
	}
	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	c := Config{
		Server: ServerConfig{
			URL:    cfg.GetString(ServerURLKey),
			Listen: cfg.GetString(ListenKey),
			Seats:  cfg.GetInt(SeatsKey),
		},
		Connection: ConnectionConfig{
			MaxRetries:   cfg.GetInt(MaxRetriesKey),
			RetryBackoff: cfg.GetDuration(RetryBackoffKey),
			DialTimeout:  cfg.GetDuration(DialTimeoutKey),
			WriteTimeout: cfg.GetDuration(WriteTimeoutKey),
		},
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the connection manager cannot run with.
func (c Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server.url is empty")
	}
	if c.Connection.MaxRetries < 0 {
		return fmt.Errorf("connection.max_retries must not be negative, got %d", c.Connection.MaxRetries)
	}
	if c.Connection.RetryBackoff < 0 {
		return fmt.Errorf("connection.retry_backoff must not be negative, got %s", c.Connection.RetryBackoff)
	}
	if c.Server.Seats <= 0 {
		return fmt.Errorf("server.seats must be positive, got %d", c.Server.Seats)
	}
	return nil
}

// fileConfig is the on-disk form; durations are written as strings.
type fileConfig struct {
	Server     ServerConfig `toml:"server"`
	Connection struct {
		MaxRetries   int    `toml:"max_retries"`
		RetryBackoff string `toml:"retry_backoff"`
		DialTimeout  string `toml:"dial_timeout"`
		WriteTimeout string `toml:"write_timeout"`
	} `toml:"connection"`
}

// Write stores c as TOML at path, creating the directory if needed.
// An existing file is only replaced when overwrite is set.
func Write(path string, c Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	var fc fileConfig
	fc.Server = c.Server
	fc.Connection.MaxRetries = c.Connection.MaxRetries
	fc.Connection.RetryBackoff = c.Connection.RetryBackoff.String()
	fc.Connection.DialTimeout = c.Connection.DialTimeout.String()
	fc.Connection.WriteTimeout = c.Connection.WriteTimeout.String()

	data, err := toml.Marshal(fc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, configFileMode); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
