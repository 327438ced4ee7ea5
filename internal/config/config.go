package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.yaml.in/yaml/v4"
)

const (
	defaultConfigFile = "config.yaml"
	envPrefix         = "HEALTHDATA"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

type Config struct {
	Profile      string        `yaml:"profile" envconfig:"PROFILE"`
	Timezone     string        `yaml:"timezone" envconfig:"TIMEZONE"`
	DBPath       string        `yaml:"db_path" envconfig:"DB_PATH"`
	APIBaseURL   string        `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	QueryTimeout time.Duration `yaml:"query_timeout" envconfig:"QUERY_TIMEOUT"`
	Server       ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Log          LogConfig     `yaml:"log" envconfig:"LOG"`
	Email        EmailConfig   `yaml:"email" envconfig:"EMAIL"`
}

type ServerConfig struct {
	Address string `yaml:"address" envconfig:"ADDRESS"`
	// GrantRead answers the read permission prompt for remote clients.
	GrantRead bool `yaml:"grant_read" envconfig:"GRANT_READ"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type EmailConfig struct {
	ResendAPIKey string `yaml:"resend_api_key" envconfig:"RESEND_API_KEY"`
	From         string `yaml:"from" envconfig:"FROM"`
	To           string `yaml:"to" envconfig:"TO"`
}

func Default() Config {
	return Config{
		Profile:  "default",
		Timezone: "Local",
		DBPath:   "healthdata.db",
		Server: ServerConfig{
			Address: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Email: EmailConfig{
			From: "onboarding@resend.dev",
		},
	}
}

// Load reads the YAML file named by HEALTHDATA_CONFIG (config.yaml when
// unset) and then applies HEALTHDATA_* environment overrides. Only an
// explicitly named file is required to exist.
func Load() (*Config, error) {
	cfg := Default()

	path, explicit := os.LookupEnv(envPrefix + "_CONFIG")
	if !explicit || path == "" {
		path = defaultConfigFile
		explicit = false
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location is the calendar used to turn instants into days.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Remote() bool {
	return c.APIBaseURL != ""
}

func (c *Config) EmailEnabled() bool {
	return c.Email.ResendAPIKey != "" && c.Email.To != ""
}
