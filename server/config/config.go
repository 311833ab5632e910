package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("batch size and bitrate must be positive")

const (
	DefaultBatchSize = 5
	DefaultBitrate   = 192
)

type Config struct {
	Server         ServerConfig     `yaml:"server" mapstructure:"server"`
	Logging        LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Paths          PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Downloads      DownloadsConfig  `yaml:"downloads" mapstructure:"downloads"`
	Authentication AuthConfig       `yaml:"authentication" mapstructure:"authentication"`
	SoundCloud     SoundCloudConfig `yaml:"soundcloud" mapstructure:"soundcloud"`
	OpenId         OpenIdConfig     `yaml:"openid" mapstructure:"openid"`

	path string
	// guards the runtime editable settings
	mu sync.RWMutex
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Host    string `yaml:"host" mapstructure:"host"`
	Port    int    `yaml:"port" mapstructure:"port"`
}

type LoggingConfig struct {
	LogPath           string `yaml:"log_path" mapstructure:"log_path"`
	EnableFileLogging bool   `yaml:"enable_file_logging" mapstructure:"enable_file_logging"`
}

type PathsConfig struct {
	DownloadPath      string `yaml:"download_path" mapstructure:"download_path"`
	FFmpegPath        string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	LocalDatabasePath string `yaml:"local_database_path" mapstructure:"local_database_path"`
}

type DownloadsConfig struct {
	BatchSize   int `yaml:"batch_size" mapstructure:"batch_size"`
	BitrateKbps int `yaml:"bitrate" mapstructure:"bitrate"`
}

type AuthConfig struct {
	RequireAuth  bool   `yaml:"require_auth" mapstructure:"require_auth"`
	Username     string `yaml:"username" mapstructure:"username"`
	PasswordHash string `yaml:"password" mapstructure:"password"`
	JWTSecret    string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type SoundCloudConfig struct {
	ClientId     string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string  `yaml:"client_secret" mapstructure:"client_secret"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

type OpenIdConfig struct {
	UseOpenId      bool     `yaml:"use_openid" mapstructure:"use_openid"`
	ProviderURL    string   `yaml:"provider_url" mapstructure:"provider_url"`
	ClientId       string   `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret   string   `yaml:"client_secret" mapstructure:"client_secret"`
	RedirectURL    string   `yaml:"redirect_url" mapstructure:"redirect_url"`
	EmailWhitelist []string `yaml:"email_whitelist" mapstructure:"email_whitelist"`
}

var (
	instance     *Config
	instanceOnce sync.Once
)

func Instance() *Config {
	if instance == nil {
		instanceOnce.Do(func() {
			instance = &Config{}
			instance.Downloads.BatchSize = DefaultBatchSize
			instance.Downloads.BitrateKbps = DefaultBitrate
		})
	}
	return instance
}

// SetPath records where the config was loaded from, Persist writes there.
func (c *Config) SetPath(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	c.path = path
}

// Path of the directory containing the config file
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// Absolute path of the config file
func (c *Config) Path() string { return c.path }

// Settings is the part of the config a user can change at runtime.
type Settings struct {
	DownloadPath string `json:"download_path"`
	BatchSize    int    `json:"batch_size"`
	BitrateKbps  int    `json:"bitrate"`
}

func (c *Config) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Settings{
		DownloadPath: c.Paths.DownloadPath,
		BatchSize:    c.Downloads.BatchSize,
		BitrateKbps:  c.Downloads.BitrateKbps,
	}
}

// UpdateSettings applies s and writes the config file back. Zero values
// leave the current setting untouched.
func (c *Config) UpdateSettings(s Settings) error {
	if s.BatchSize < 0 || s.BitrateKbps < 0 {
		return ErrInvalidSettings
	}

	c.mu.Lock()
	if s.DownloadPath != "" {
		c.Paths.DownloadPath = s.DownloadPath
	}
	if s.BatchSize > 0 {
		c.Downloads.BatchSize = s.BatchSize
	}
	if s.BitrateKbps > 0 {
		c.Downloads.BitrateKbps = s.BitrateKbps
	}
	c.mu.Unlock()

	return c.Persist()
}

func (c *Config) DestinationDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Paths.DownloadPath
}

func (c *Config) ConcurrencyLimit() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Downloads.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.Downloads.BatchSize
}

func (c *Config) BitrateKbps() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Downloads.BitrateKbps <= 0 {
		return DefaultBitrate
	}
	return c.Downloads.BitrateKbps
}

// Persist writes the config to its file. It is a no-op for a config that
// was not loaded from a file.
func (c *Config) Persist() error {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	data, err := yaml.Marshal(c)
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}
