package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/basel-ax/bagtrainer/internal/domain"
)

const (
	EncodingJSON      = "json"
	EncodingMultipart = "multipart"
)

// Config holds all configuration for the application
type Config struct {
	APIKey           string        `env:"RUNWARE_API_KEY"`
	APIURL           string        `env:"RUNWARE_API_URL"`
	Encoding         string        `env:"RUNWARE_ENCODING"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"`
	DefaultModelName string        `env:"DEFAULT_MODEL_NAME"`
	DefaultImageType string        `env:"DEFAULT_IMAGE_TYPE"`
	PromptMaxLength  int           `env:"PROMPT_MAX_LENGTH"`
	HTTPAddr         string        `env:"HTTP_ADDR"`
	UploadMaxBytes   int64         `env:"UPLOAD_MAX_BYTES"`
}

// Defaults returns the configuration used for every value the
// environment does not override.
func Defaults() *Config {
	return &Config{
		APIURL:           "https://api.runware.ai/v1",
		Encoding:         EncodingJSON,
		RequestTimeout:   60 * time.Second,
		DefaultModelName: "test_handbag_lora",
		DefaultImageType: string(domain.ImageTypeHero),
		PromptMaxLength:  999,
		HTTPAddr:         ":8501",
		UploadMaxBytes:   64 << 20,
	}
}

// Load loads the configuration from an env file and environment variables.
// An explicit envFile must exist; otherwise a missing .env is ignored.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("error loading env file %q: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("RUNWARE_API_KEY is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("RUNWARE_API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("RUNWARE_API_URL %q is not an absolute URL", c.APIURL)
	}
	switch c.Encoding {
	case EncodingJSON, EncodingMultipart:
	default:
		return fmt.Errorf("RUNWARE_ENCODING must be %q or %q, got %q", EncodingJSON, EncodingMultipart, c.Encoding)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.DefaultModelName == "" {
		return fmt.Errorf("DEFAULT_MODEL_NAME is required")
	}
	if _, err := domain.ParseImageType(c.DefaultImageType); err != nil {
		return fmt.Errorf("DEFAULT_IMAGE_TYPE: %w", err)
	}
	if c.PromptMaxLength <= 0 {
		return fmt.Errorf("PROMPT_MAX_LENGTH must be positive")
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive")
	}
	return nil
}
