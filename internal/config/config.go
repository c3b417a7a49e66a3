package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the relay. It is read once at startup
// and passed down; nothing below cmd/ reads the environment.
type Config struct {
	OpenAI OpenAIConfig
	Log    LogConfig
	Local  LocalConfig
}

// OpenAIConfig holds upstream settings. An empty APIKey is valid: requests
// then fail with a configuration error instead of the process refusing to start.
type OpenAIConfig struct {
	APIKey      string
	APIKeyParam string
	BaseURL     string        `validate:"required,url"`
	Timeout     time.Duration `validate:"gte=1s"`
}

type LogConfig struct {
	Level  string `validate:"required,oneof=trace debug info warn warning error"`
	Format string `validate:"required,oneof=json text"`
}

// LocalConfig is only used by the local development server.
type LocalConfig struct {
	Addr string `validate:"required"`
	Path string `validate:"required,startswith=/"`
}

var validate = validator.New()

// Load reads configuration from the environment, after merging an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("OPENAI_TIMEOUT", 30*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOCAL_ADDR", ":8080")
	v.SetDefault("LOCAL_PATH", "/chat")

	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey:      strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
			APIKeyParam: strings.TrimSpace(v.GetString("OPENAI_API_KEY_PARAM")),
			BaseURL:     strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),
			Timeout:     v.GetDuration("OPENAI_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		},
		Local: LocalConfig{
			Addr: strings.TrimSpace(v.GetString("LOCAL_ADDR")),
			Path: strings.TrimSpace(v.GetString("LOCAL_PATH")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid configuration: %w", err)
	}
	return nil
}

// UsesParamStore reports whether the API key must be fetched from SSM.
// A key given directly always wins.
func (c *Config) UsesParamStore() bool {
	return c.OpenAI.APIKey == "" && c.OpenAI.APIKeyParam != ""
}
