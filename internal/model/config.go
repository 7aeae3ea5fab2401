package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing key. serve warns when it is
// still in use.
const DefaultJWTSecret = "todolist-dev-secret-change-me"

// ServerConfig holds settings for the REST API process.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// DBPath is the SQLite database file.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	// LoginPerMinute and LoginBurst bound register/login attempts per client.
	LoginPerMinute int `mapstructure:"login_per_minute" yaml:"login_per_minute"`
	LoginBurst     int `mapstructure:"login_burst" yaml:"login_burst"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// StateFile backs the client's local storage (state snapshot, offline
	// queue, fallback token).
	StateFile string `mapstructure:"state_file" yaml:"state_file"`

	// UseKeyring stores the session token in the system keyring instead of
	// the state file.
	UseKeyring bool `mapstructure:"use_keyring" yaml:"use_keyring"`

	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	TimeoutSec      int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`

	// File redirects logs away from stderr; the TUI always sets one.
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Client ClientConfig `mapstructure:"client" yaml:"client"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns ~/.config/todolist/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "todolist")
}

func setDefaults(v *viper.Viper) {
	dir := configDir()
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.db_path", filepath.Join(dir, "todos.db"))
	v.SetDefault("server.jwt_secret", DefaultJWTSecret)
	v.SetDefault("server.token_ttl", 7*24*time.Hour)
	v.SetDefault("server.login_per_minute", 10)
	v.SetDefault("server.login_burst", 5)
	v.SetDefault("client.base_url", "http://localhost:3000")
	v.SetDefault("client.state_file", filepath.Join(dir, "state.json"))
	v.SetDefault("client.use_keyring", false)
	v.SetDefault("client.poll_interval_sec", 15)
	v.SetDefault("client.timeout_sec", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file is not an error; defaults and environment variables
// (TODOLIST_SERVER_PORT and friends, plus PORT and JWT_SECRET) still apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("TODOLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "TODOLIST_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.jwt_secret", "TODOLIST_SERVER_JWT_SECRET", "JWT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Client.PollIntervalSec <= 0 {
		cfg.Client.PollIntervalSec = 15
	}
	return &cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("client", cfg.Client)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
