// Package config loads walletd settings from YAML with environment overrides.
package config

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type SessionConfig struct {
	ChallengeTTL time.Duration `yaml:"challengeTTL"`
	AccessTTL    time.Duration `yaml:"accessTTL"`
	RefreshTTL   time.Duration `yaml:"refreshTTL"`
}

type Config struct {
	ListenAddress  string        `yaml:"listen"`
	RedisURL       string        `yaml:"redisURL"`
	Backend        string        `yaml:"backend"`
	SigningKeyFile string        `yaml:"signingKeyFile"`
	Debug          bool          `yaml:"debug"`
	Session        SessionConfig `yaml:"session"`
}

func defaults() Config {
	return Config{
		ListenAddress: ":9000",
		RedisURL:      "redis://localhost:6379/0",
		Backend:       BackendRedis,
		Session: SessionConfig{
			ChallengeTTL: 5 * time.Minute,
			AccessTTL:    5 * time.Minute,
			RefreshTTL:   5 * 24 * time.Hour,
		},
	}
}

// Load reads path (optional), applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddress = v
	}
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		cfg.RedisURL = v
	}
	if v, ok := lookup("SIGNING_KEY_FILE"); ok && v != "" {
		cfg.SigningKeyFile = v
	}
}

func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen cannot be empty")
	}
	switch cfg.Backend {
	case BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return fmt.Errorf("redisURL is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	s := cfg.Session
	if s.ChallengeTTL <= 0 || s.AccessTTL <= 0 || s.RefreshTTL <= 0 {
		return fmt.Errorf("session TTLs must be positive")
	}
	if s.AccessTTL > s.RefreshTTL {
		return fmt.Errorf("session.accessTTL cannot exceed session.refreshTTL")
	}
	return nil
}

// SigningKey loads the ES256 key from SigningKeyFile. It returns nil when no file is set.
func (cfg *Config) SigningKey() (*ecdsa.PrivateKey, error) {
	if cfg.SigningKeyFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return key, nil
}
