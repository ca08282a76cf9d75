package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"safetyhub-assessment-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Auth struct {
		// JWTSecret verifies bearer tokens. Explicit config, no ambient default.
		JWTSecret string `yaml:"jwtSecret"`
		// PublicLeaderboard keeps the leaderboard readable without a token.
		PublicLeaderboard bool `yaml:"publicLeaderboard"`
	} `yaml:"auth"`
	Assessment struct {
		CacheTTL string `yaml:"cacheTtl"`
	} `yaml:"assessment"`
	Leaderboard struct {
		Size     int    `yaml:"size"`
		CacheTTL string `yaml:"cacheTtl"`
	} `yaml:"leaderboard"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"` // optional rotating file sink
	} `yaml:"logging"`
	// DemoUsers are installed into the user directory at startup. Replaces the
	// implicit demo-account seeding of earlier deployments.
	DemoUsers []DemoUser `yaml:"demoUsers"`
}

type DemoUser struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// User converts a seed entry to the domain type.
func (u DemoUser) User() domain.User {
	return domain.User{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
