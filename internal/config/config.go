package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/michaelbrown/explorer/internal/sandbox"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DockerConfig struct {
	Image   string   `mapstructure:"image"`
	Memory  string   `mapstructure:"memory"`
	Network bool     `mapstructure:"network"`
	Images  []string `mapstructure:"images"`
}

type SandboxConfig struct {
	Backend   string        `mapstructure:"backend"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxSteps  uint64        `mapstructure:"max_steps"`
	MaxDepth  int           `mapstructure:"max_depth"`
	MaxOutput int           `mapstructure:"max_output"`
	Docker    DockerConfig  `mapstructure:"docker"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

type AssistantConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads explorer.yaml from the working directory or $HOME/.explorer.
// A missing file is fine; defaults and EXPLORER_* environment variables
// still apply.
func Load() (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("explorer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.explorer")

	setDefaults(v)

	v.SetEnvPrefix("explorer")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	policy := sandbox.DefaultPolicy()

	v.SetDefault("server.port", 8080)

	v.SetDefault("sandbox.backend", "starlark")
	v.SetDefault("sandbox.timeout", policy.MaxTimeout)
	v.SetDefault("sandbox.max_steps", policy.MaxSteps)
	v.SetDefault("sandbox.max_depth", policy.MaxDepth)
	v.SetDefault("sandbox.max_output", policy.MaxOutput)
	v.SetDefault("sandbox.docker.image", sandbox.DefaultImage)
	v.SetDefault("sandbox.docker.memory", policy.MaxMemory)
	v.SetDefault("sandbox.docker.network", policy.Network)
	v.SetDefault("sandbox.docker.images", policy.Images)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.db_path", filepath.Join(os.Getenv("HOME"), ".explorer", "explorer.db"))

	// Every key needs a default so Unmarshal sees its EXPLORER_* override.
	v.SetDefault("assistant.enabled", false)
	v.SetDefault("assistant.base_url", "")
	v.SetDefault("assistant.model", "")
	v.SetDefault("assistant.api_key", "${OPENAI_API_KEY}")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Expand environment variables in the API key
	cfg.Assistant.APIKey = expandEnv(cfg.Assistant.APIKey)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return &cfg, nil
}

func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}

// Policy converts the sandbox section into execution limits.
func (c SandboxConfig) Policy() sandbox.Policy {
	return sandbox.Policy{
		MaxTimeout: c.Timeout,
		MaxSteps:   c.MaxSteps,
		MaxDepth:   c.MaxDepth,
		MaxOutput:  c.MaxOutput,
		MaxMemory:  c.Docker.Memory,
		Network:    c.Docker.Network,
		Images:     c.Docker.Images,
	}
}

// NewSandbox builds the configured execution backend.
func (c *Config) NewSandbox() (sandbox.Sandbox, error) {
	return sandbox.New(c.Sandbox.Backend, c.Sandbox.Policy(), c.Sandbox.Docker.Image)
}

// AssistantReady reports whether error explanations can be requested.
func (c *Config) AssistantReady() bool {
	return c.Assistant.Enabled && c.Assistant.Model != ""
}
