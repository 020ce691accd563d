package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		CORSOrigins     []string `yaml:"cors_origins"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Questions struct {
		TTL      string `yaml:"ttl"`
		BankFile string `yaml:"bank_file"`
	} `yaml:"questions"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	Grader struct {
		BaseURL         string `yaml:"base_url"`
		APIKey          string `yaml:"api_key"`
		Model           string `yaml:"model"`
		ReasoningModel  string `yaml:"reasoning_model"`
		LongAnswerRunes int    `yaml:"long_answer_runes"`
		MaxAnswerLength int    `yaml:"max_answer_length"`
		Topic           string `yaml:"topic"`
		Timeout         string `yaml:"timeout"`
	} `yaml:"grader"`
}

// Load reads YAML config from path and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets deployment secrets and addresses win over the file.
func (c *Config) applyEnv() {
	c.Grader.APIKey = envOr("OPENAI_API_KEY", c.Grader.APIKey)
	c.Grader.BaseURL = envOr("OPENAI_BASE_URL", c.Grader.BaseURL)
	c.Postgres.URL = envOr("DATABASE_URL", c.Postgres.URL)
	c.SQLite.Path = envOr("SQLITE_PATH", c.SQLite.Path)
	c.Redis.Addr = envOr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	if raw := os.Getenv("MAX_ANSWER_LENGTH"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			c.Grader.MaxAnswerLength = n
		}
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
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
