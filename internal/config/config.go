// Package config handles the XDG configuration directory, the optional
// config.toml file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"hillchart/internal/hill"
	"hillchart/internal/progress"
)

const (
	// AppName is the application directory name.
	AppName = "hillchart"

	// ConfigFile is the optional settings file inside Dir.
	ConfigFile = "config.toml"

	// DatabaseFile is the default SQLite file inside Dir.
	DatabaseFile = "hillchart.db"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// DefaultAddr is the HTTP listen address when neither the file nor PORT
	// set one.
	DefaultAddr = ":3000"

	// EnvDatabase overrides the database path.
	EnvDatabase = "HILLCHART_DB"

	// EnvPort overrides the listen port.
	EnvPort = "PORT"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `toml:"-"`

	// Debug enables debug logging.
	Debug bool `toml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `toml:"-"`

	// Database is the SQLite file path.
	Database string `toml:"database"`

	// CoupledCompletion links a task's completed flag to its position.
	CoupledCompletion bool `toml:"coupled_completion"`

	// AvatarBase prefixes avatar file names written by seed.
	AvatarBase string `toml:"avatar_base"`

	Server ServerConfig `toml:"server"`
	Chart  hill.Params  `toml:"chart"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/hillchart or $HOME/.config/hillchart.
// Settings are layered: defaults, config.toml, environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:        dir,
		Database:   filepath.Join(dir, DatabaseFile),
		Server:     ServerConfig{Addr: DefaultAddr},
		Chart:      hill.DefaultParams(),
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	cfg.loadEnv()
	if cfg.AvatarBase == "" {
		cfg.AvatarBase = avatarBase(cfg.Server.Addr)
	}

	if err := cfg.Chart.Validate(); err != nil {
		return nil, fmt.Errorf("invalid [chart] in %s: %w", cfg.FilePath(), err)
	}
	return cfg, nil
}

func (c *Config) loadFile() error {
	path := c.FilePath()
	meta, err := toml.DecodeFile(path, c)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}
	if c.Database != "" && !filepath.IsAbs(c.Database) {
		c.Database = filepath.Join(c.Dir, c.Database)
	}
	return nil
}

func (c *Config) loadEnv() {
	if db := os.Getenv(EnvDatabase); db != "" {
		c.Database = db
	}
	if port := os.Getenv(EnvPort); port != "" {
		c.Server.Addr = ":" + port
	}
}

// avatarBase is the image URL prefix served by a server listening on addr.
func avatarBase(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/images"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/images"
}

// Policy returns the completion policy selected by CoupledCompletion.
func (c *Config) Policy() progress.CompletionPolicy {
	if c.CoupledCompletion {
		return progress.Coupled
	}
	return progress.Independent
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// FilePath returns the path to config.toml.
func (c *Config) FilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
