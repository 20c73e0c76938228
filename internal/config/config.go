package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "journal.db"
	DefaultLogName        = "pmdash.log"
	DefaultBaseURL        = "https://upskilling-egypt.com:3003/api/v1"

	configEnv = "PMDASH_CONFIG"
	appDir    = "pmdash"
)

type Keymap struct {
	Quit     string `toml:"quit"`
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Search   string `toml:"search"`
	NextPage string `toml:"next_page"`
	PrevPage string `toml:"prev_page"`
	PageSize string `toml:"page_size"`
	Detail   string `toml:"detail"`
	Delete   string `toml:"delete"`
	Add      string `toml:"add"`
	Edit     string `toml:"edit"`
	Confirm  string `toml:"confirm"`
	Cancel   string `toml:"cancel"`
	Switch   string `toml:"switch"`
	Reload   string `toml:"reload"`
	History  string `toml:"history"`
}

type Config struct {
	BaseURL         string `toml:"base_url" env:"PMDASH_BASE_URL"`
	Token           string `toml:"token" env:"PMDASH_TOKEN"`
	Role            string `toml:"role" env:"PMDASH_ROLE"`
	DefaultResource string `toml:"default_resource" env:"PMDASH_RESOURCE"`
	PageSize        int    `toml:"page_size" env:"PMDASH_PAGE_SIZE"`
	PageSizes       []int  `toml:"page_sizes"`
	TimeoutSeconds  int    `toml:"request_timeout_seconds" env:"PMDASH_REQUEST_TIMEOUT"`
	DBPath          string `toml:"db_path" env:"PMDASH_DB_PATH"`
	LogPath         string `toml:"log_path" env:"PMDASH_LOG_PATH"`
	LogLevel        string `toml:"log_level" env:"PMDASH_LOG_LEVEL"`
	Keys            Keymap `toml:"keys"`
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveConfigPath picks $PMDASH_CONFIG, then the user config dir, then the
// working directory.
func ResolveConfigPath() string {
	if p := os.Getenv(configEnv); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir, DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

// LoadOrCreate reads the TOML file at path, writing the defaults there first
// if it does not exist. Environment variables override file values.
func LoadOrCreate(path string) (Config, error) {
	dir := filepath.Dir(path)
	cfg := defaultConfig(dir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	fillDefaults(&cfg, dir)
	return cfg, nil
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func fillDefaults(cfg *Config, dir string) {
	def := defaultConfig(dir)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = def.PageSizes
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = def.TimeoutSeconds
	}
	if cfg.DBPath == "" {
		cfg.DBPath = def.DBPath
	}
	if cfg.LogPath == "" {
		cfg.LogPath = def.LogPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.DefaultResource == "" {
		cfg.DefaultResource = def.DefaultResource
	}
}

func defaultConfig(dir string) Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		DefaultResource: "projects",
		PageSize:        10,
		PageSizes:       []int{5, 10, 20, 50},
		TimeoutSeconds:  30,
		DBPath:          filepath.Join(dir, DefaultDBName),
		LogPath:         filepath.Join(dir, DefaultLogName),
		LogLevel:        "info",
		Keys: Keymap{
			Quit:     "q",
			Up:       "k",
			Down:     "j",
			Search:   "/",
			NextPage: "n",
			PrevPage: "p",
			PageSize: "z",
			Detail:   "enter",
			Delete:   "d",
			Add:      "a",
			Edit:     "e",
			Confirm:  "enter",
			Cancel:   "esc",
			Switch:   "tab",
			Reload:   "g",
			History:  "h",
		},
	}
}
