package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Camel-bot/Spotilife/pkg/genius"
	"github.com/Camel-bot/Spotilife/pkg/lrclib"
	"github.com/Camel-bot/Spotilife/pkg/lyrics"
	"github.com/Camel-bot/Spotilife/pkg/music"
	"github.com/Camel-bot/Spotilife/pkg/musixmatch"
	"github.com/Camel-bot/Spotilife/pkg/netease"
)

const (
	DefaultSocketPath    = "/tmp/lyrics_app.sock"
	DefaultStatusPath    = "/tmp/lyrics"
	DefaultCheckInterval = 5 * time.Second
	DefaultHTTPAddr      = "127.0.0.1:8787"
	DefaultLogLevel      = "info"
	DefaultRedisKey      = "lyrics:prefs"
)

// TomlConfig TOML配置文件结构
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		StatusPath    string `toml:"status_path"`
		CheckInterval string `toml:"check_interval"`
		HTTPAddr      string `toml:"http_addr"`
		LogLevel      string `toml:"log_level"`
	} `toml:"app"`

	Lyrics struct {
		Source       string `toml:"source"`
		Fallback     *bool  `toml:"fallback"`
		Romanization *bool  `toml:"romanization"`
	} `toml:"lyrics"`

	Musixmatch struct {
		Token       string `toml:"token"`
		DeviceClass string `toml:"device_class"`
		BaseURL     string `toml:"base_url"`
	} `toml:"musixmatch"`

	Genius struct {
		BaseURL string `toml:"base_url"`
		Token   string `toml:"token"`
	} `toml:"genius"`

	LRCLib struct {
		BaseURL string `toml:"base_url"`
	} `toml:"lrclib"`

	NetEase struct {
		BaseURL string `toml:"base_url"`
		Cookie  string `toml:"cookie"`
	} `toml:"netease"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Key      string `toml:"key"`
	} `toml:"redis"`
}

// AppConfig 应用配置
type AppConfig struct {
	SocketPath    string        `validate:"required"`
	StatusPath    string
	CheckInterval time.Duration `validate:"gt=0"`
	HTTPAddr      string
	LogLevel      string `validate:"oneof=trace debug info warn error"`
}

// LyricsConfig holds the default lyrics options.
type LyricsConfig struct {
	Source       string `validate:"oneof=musixmatch genius lrclib netease"`
	Fallback     bool
	Romanization bool
}

// MusixmatchConfig Musixmatch配置
type MusixmatchConfig struct {
	Token       string
	DeviceClass string `validate:"oneof=phone tablet"`
	BaseURL     string `validate:"required,url"`
}

// GeniusConfig Genius配置
type GeniusConfig struct {
	BaseURL string `validate:"required,url"`
	Token   string
}

// LRCLibConfig LRCLIB配置
type LRCLibConfig struct {
	BaseURL string `validate:"required,url"`
}

// NetEaseConfig 网易云配置
type NetEaseConfig struct {
	BaseURL string `validate:"required,url"`
	Cookie  string
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool
	Addr     string `validate:"required_if=Enabled true"`
	Password string
	DB       int `validate:"gte=0"`
	Key      string `validate:"required"`
}

// Config 主配置结构
type Config struct {
	App        AppConfig
	Lyrics     LyricsConfig
	Musixmatch MusixmatchConfig
	Genius     GeniusConfig
	LRCLib     LRCLibConfig
	NetEase    NetEaseConfig
	Redis      RedisConfig
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			StatusPath:    DefaultStatusPath,
			CheckInterval: DefaultCheckInterval,
			HTTPAddr:      DefaultHTTPAddr,
			LogLevel:      DefaultLogLevel,
		},
		Lyrics: LyricsConfig{
			Source:       string(lyrics.SourceMusixmatch),
			Fallback:     true,
			Romanization: false,
		},
		Musixmatch: MusixmatchConfig{
			DeviceClass: string(musixmatch.DevicePhone),
			BaseURL:     musixmatch.DefaultBaseURL,
		},
		Genius: GeniusConfig{
			BaseURL: genius.DefaultBaseURL,
		},
		LRCLib: LRCLibConfig{
			BaseURL: lrclib.DefaultBaseURL,
		},
		NetEase: NetEaseConfig{
			BaseURL: netease.DefaultBaseURL,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			Key:  DefaultRedisKey,
		},
	}
}

// Path 获取配置文件路径
func Path() string {
	// 优先使用 XDG_CONFIG_HOME 环境变量
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyrics", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("Cannot get user home directory")
		return "config.toml" // 回退到当前目录
	}

	return filepath.Join(homeDir, ".config", "lyrics", "config.toml")
}

// loadTomlConfig 加载TOML配置文件
func loadTomlConfig(path string) (*TomlConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("Config file not found, using defaults")
		return &TomlConfig{}, nil
	}

	var tc TomlConfig
	if _, err := toml.DecodeFile(path, &tc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Loaded config")
	return &tc, nil
}

// Load reads the config file at path (the default location when empty),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	// .env 文件是可选的
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	tc, err := loadTomlConfig(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.apply(tc)
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Musixmatch.Token == "" {
		log.Warn().
			Str("path", path).
			Msg("No Musixmatch token configured, set musixmatch.token or MUSIXMATCH_TOKEN")
	}
	return cfg, nil
}

// apply 从TOML配置中覆盖默认值
func (c *Config) apply(tc *TomlConfig) {
	if tc.App.SocketPath != "" {
		c.App.SocketPath = tc.App.SocketPath
	}
	if tc.App.StatusPath != "" {
		c.App.StatusPath = tc.App.StatusPath
	}
	if tc.App.CheckInterval != "" {
		if d, err := time.ParseDuration(tc.App.CheckInterval); err == nil {
			c.App.CheckInterval = d
		} else {
			log.Warn().Str("check_interval", tc.App.CheckInterval).Msg("Invalid check_interval format, using default")
		}
	}
	if tc.App.HTTPAddr != "" {
		c.App.HTTPAddr = tc.App.HTTPAddr
	}
	if tc.App.LogLevel != "" {
		c.App.LogLevel = strings.ToLower(tc.App.LogLevel)
	}

	if tc.Lyrics.Source != "" {
		c.Lyrics.Source = strings.ToLower(tc.Lyrics.Source)
	}
	if tc.Lyrics.Fallback != nil {
		c.Lyrics.Fallback = *tc.Lyrics.Fallback
	}
	if tc.Lyrics.Romanization != nil {
		c.Lyrics.Romanization = *tc.Lyrics.Romanization
	}

	if tc.Musixmatch.Token != "" {
		c.Musixmatch.Token = tc.Musixmatch.Token
	}
	if tc.Musixmatch.DeviceClass != "" {
		c.Musixmatch.DeviceClass = strings.ToLower(tc.Musixmatch.DeviceClass)
	}
	if tc.Musixmatch.BaseURL != "" {
		c.Musixmatch.BaseURL = tc.Musixmatch.BaseURL
	}

	if tc.Genius.BaseURL != "" {
		c.Genius.BaseURL = tc.Genius.BaseURL
	}
	if tc.Genius.Token != "" {
		c.Genius.Token = tc.Genius.Token
	}

	if tc.LRCLib.BaseURL != "" {
		c.LRCLib.BaseURL = tc.LRCLib.BaseURL
	}

	if tc.NetEase.BaseURL != "" {
		c.NetEase.BaseURL = tc.NetEase.BaseURL
	}
	if tc.NetEase.Cookie != "" {
		c.NetEase.Cookie = tc.NetEase.Cookie
	}

	c.Redis.Enabled = tc.Redis.Enabled
	if tc.Redis.Addr != "" {
		c.Redis.Addr = tc.Redis.Addr
	}
	if tc.Redis.Password != "" {
		c.Redis.Password = tc.Redis.Password
	}
	if tc.Redis.DB != 0 {
		c.Redis.DB = tc.Redis.DB
	}
	if tc.Redis.Key != "" {
		c.Redis.Key = tc.Redis.Key
	}
}

// applyEnv lets secrets live outside the config file.
func (c *Config) applyEnv() {
	if token := os.Getenv("MUSIXMATCH_TOKEN"); token != "" {
		c.Musixmatch.Token = token
	}
	if cookie := os.Getenv("NETEASE_COOKIE"); cookie != "" {
		c.NetEase.Cookie = cookie
	}
	if token := os.Getenv("GENIUS_TOKEN"); token != "" {
		c.Genius.Token = token
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Options returns the lyrics options configured in the file.
func (c *Config) Options() lyrics.Options {
	source, err := lyrics.ParseSource(c.Lyrics.Source)
	if err != nil {
		source = lyrics.SourceMusixmatch
	}
	return lyrics.Options{
		Source:       source,
		Fallback:     c.Lyrics.Fallback,
		Romanization: c.Lyrics.Romanization,
	}
}

// ProviderConfig 返回各歌词提供商的配置
func (c *Config) ProviderConfig() music.ProviderConfig {
	return music.ProviderConfig{
		Musixmatch: musixmatch.Config{
			Token:       c.Musixmatch.Token,
			DeviceClass: musixmatch.DeviceClass(c.Musixmatch.DeviceClass),
			BaseURL:     c.Musixmatch.BaseURL,
		},
		Genius:    genius.Config{BaseURL: c.Genius.BaseURL, Token: c.Genius.Token},
		LRCLibURL: c.LRCLib.BaseURL,
		NetEase:   netease.Config{BaseURL: c.NetEase.BaseURL, Cookie: c.NetEase.Cookie},
	}
}
