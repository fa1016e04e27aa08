package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Cache   CacheConfig   `yaml:"cache"`
	Session SessionConfig `yaml:"session"`
	Music   MusicConfig   `yaml:"music"`
}

type BackendConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type CacheConfig struct {
	Dir                  string `yaml:"dir"`
	ProbeIntervalSeconds int    `yaml:"probe_interval_seconds"`
}

type SessionConfig struct {
	DefaultRestSeconds int `yaml:"default_rest_seconds"`
}

type MusicConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	CallbackAddr string `yaml:"callback_addr"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix REPCOACH_ and underscore-separated
// paths:
//
//	REPCOACH_BACKEND_URL, REPCOACH_BACKEND_TOKEN,
//	REPCOACH_CACHE_DIR, REPCOACH_CACHE_PROBE_INTERVAL,
//	REPCOACH_SESSION_DEFAULT_REST,
//	REPCOACH_MUSIC_CLIENT_ID, REPCOACH_MUSIC_CLIENT_SECRET,
//	REPCOACH_MUSIC_REDIRECT_URI, REPCOACH_MUSIC_CALLBACK_ADDR
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REPCOACH_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("REPCOACH_BACKEND_TOKEN"); v != "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv("REPCOACH_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("REPCOACH_CACHE_PROBE_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.ProbeIntervalSeconds = n
		}
	}
	if v := os.Getenv("REPCOACH_SESSION_DEFAULT_REST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.DefaultRestSeconds = n
		}
	}
	if v := os.Getenv("REPCOACH_MUSIC_CLIENT_ID"); v != "" {
		cfg.Music.ClientID = v
	}
	if v := os.Getenv("REPCOACH_MUSIC_CLIENT_SECRET"); v != "" {
		cfg.Music.ClientSecret = v
	}
	if v := os.Getenv("REPCOACH_MUSIC_REDIRECT_URI"); v != "" {
		cfg.Music.RedirectURI = v
	}
	if v := os.Getenv("REPCOACH_MUSIC_CALLBACK_ADDR"); v != "" {
		cfg.Music.CallbackAddr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Cache.ProbeIntervalSeconds == 0 {
		cfg.Cache.ProbeIntervalSeconds = 30
	}
	if cfg.Session.DefaultRestSeconds == 0 {
		cfg.Session.DefaultRestSeconds = 60
	}
	if cfg.Music.CallbackAddr == "" {
		cfg.Music.CallbackAddr = "127.0.0.1:8754"
	}
	if cfg.Music.RedirectURI == "" {
		cfg.Music.RedirectURI = "http://" + cfg.Music.CallbackAddr + "/callback"
	}
}

func (c *Config) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	return nil
}
