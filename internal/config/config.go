// Package config handles switchboard configuration.
package config

import (
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Orchestration modes.
const (
	ModeCapabilities = "capabilities"
	ModeClassify     = "classify"
)

// Config holds all switchboard configuration. It is built once at startup and
// passed explicitly to every component; nothing reads it ambiently.
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	Engine       EngineConfig       `mapstructure:"engine" yaml:"engine"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Messaging    MessagingConfig    `mapstructure:"messaging" yaml:"messaging"`
	Weather      WeatherConfig      `mapstructure:"weather" yaml:"weather"`
	Journal      JournalConfig      `mapstructure:"journal" yaml:"journal"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig selects the decision provider.
type LLMConfig struct {
	Provider       string  `mapstructure:"provider" yaml:"provider"`
	Model          string  `mapstructure:"model" yaml:"model"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`
}

// Timeout returns the decision step timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EngineConfig bounds every agent run.
type EngineConfig struct {
	MaxSteps           int `mapstructure:"max_steps" yaml:"max_steps"`
	Concurrency        int `mapstructure:"concurrency" yaml:"concurrency"`
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds" yaml:"call_timeout_seconds"`
}

// CallTimeout returns the per-capability timeout.
func (c EngineConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// OrchestratorConfig shapes the top-level agent.
type OrchestratorConfig struct {
	Mode     string `mapstructure:"mode" yaml:"mode"`
	Loop     bool   `mapstructure:"loop" yaml:"loop"`
	MaxSteps int    `mapstructure:"max_steps" yaml:"max_steps"`
	Catalog  string `mapstructure:"catalog" yaml:"catalog,omitempty"`
}

// MessagingConfig is the delivery allow-list, in display order.
type MessagingConfig struct {
	Destinations []capability.Destination `mapstructure:"destinations" yaml:"destinations"`
}

// WeatherConfig points at the weather lookup service.
type WeatherConfig struct {
	GeocodeURL     string `mapstructure:"geocode_url" yaml:"geocode_url"`
	ForecastURL    string `mapstructure:"forecast_url" yaml:"forecast_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// JournalConfig enables the run journal when Driver is set.
type JournalConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       ProviderAnthropic,
			Model:          "claude-sonnet-4-20250514",
			TimeoutSeconds: 60,
			MaxTokens:      2048,
			Temperature:    0.2,
		},
		Engine: EngineConfig{
			MaxSteps:           8,
			Concurrency:        4,
			CallTimeoutSeconds: 120,
		},
		Orchestrator: OrchestratorConfig{
			Mode:     ModeCapabilities,
			Loop:     true,
			MaxSteps: 4,
		},
		Messaging: MessagingConfig{
			Destinations: []capability.Destination{
				{Name: "team", Endpoint: "log://team"},
				{Name: "development", Endpoint: "log://development"},
			},
		},
		Weather: WeatherConfig{
			GeocodeURL:     "https://geocoding-api.open-meteo.com/v1/search",
			ForecastURL:    "https://api.open-meteo.com/v1/forecast",
			TimeoutSeconds: 10,
		},
		Journal: JournalConfig{},
		Logging: LoggingConfig{Level: "info"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.timeout_seconds", d.LLM.TimeoutSeconds)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)

	v.SetDefault("engine.max_steps", d.Engine.MaxSteps)
	v.SetDefault("engine.concurrency", d.Engine.Concurrency)
	v.SetDefault("engine.call_timeout_seconds", d.Engine.CallTimeoutSeconds)

	v.SetDefault("orchestrator.mode", d.Orchestrator.Mode)
	v.SetDefault("orchestrator.loop", d.Orchestrator.Loop)
	v.SetDefault("orchestrator.max_steps", d.Orchestrator.MaxSteps)

	dests := make([]map[string]any, 0, len(d.Messaging.Destinations))
	for _, dest := range d.Messaging.Destinations {
		dests = append(dests, map[string]any{"name": dest.Name, "endpoint": dest.Endpoint})
	}
	v.SetDefault("messaging.destinations", dests)

	v.SetDefault("weather.geocode_url", d.Weather.GeocodeURL)
	v.SetDefault("weather.forecast_url", d.Weather.ForecastURL)
	v.SetDefault("weather.timeout_seconds", d.Weather.TimeoutSeconds)

	v.SetDefault("logging.level", d.Logging.Level)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("SWITCHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("journal.driver", "SWITCHBOARD_JOURNAL_DRIVER")
	_ = v.BindEnv("journal.dsn", "SWITCHBOARD_JOURNAL_DSN")
	return v
}

// Load reads configuration from path. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

// LoadFromPaths loads the first config file that exists. When none exists the
// defaults plus environment overrides are returned.
func LoadFromPaths(paths ...string) (*Config, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}

	v := newViper()
	if dir, err := ConfigDir(); err == nil {
		v.SetConfigName("config")
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stdErrors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == ProviderOllama {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_HOST")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerKeyFromEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// Validate checks structural settings. Credentials are checked separately by RequireCredentials.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama:
	default:
		return xerrors.Newf(xerrors.CodeConfiguration, "unknown llm provider %q", c.LLM.Provider)
	}

	switch c.Orchestrator.Mode {
	case ModeCapabilities, ModeClassify:
	default:
		return xerrors.Newf(xerrors.CodeConfiguration, "unknown orchestrator mode %q", c.Orchestrator.Mode)
	}

	if c.Engine.MaxSteps <= 0 || c.Engine.Concurrency <= 0 || c.Engine.CallTimeoutSeconds <= 0 {
		return xerrors.New(xerrors.CodeConfiguration, "engine limits must be positive")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return xerrors.New(xerrors.CodeConfiguration, "llm.timeout_seconds must be positive")
	}

	if _, err := capability.NewAllowList(c.Messaging.Destinations); err != nil {
		return xerrors.Wrap(xerrors.CodeConfiguration, err, "messaging.destinations")
	}

	switch c.Journal.Driver {
	case "", "sqlite", "mysql":
	default:
		return xerrors.Newf(xerrors.CodeConfiguration, "unknown journal driver %q", c.Journal.Driver)
	}
	return nil
}

// RequireCredentials fails when the selected provider needs a key that is not configured.
func (c *Config) RequireCredentials() error {
	if c.LLM.Provider == ProviderOllama {
		return nil
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return xerrors.Newf(xerrors.CodeConfiguration,
			"no API key for provider %s: set llm.api_key or %s", c.LLM.Provider, keyEnvName(c.LLM.Provider))
	}
	return nil
}

func keyEnvName(provider string) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".switchboard"), nil
}

// Save writes the configuration as YAML. The API key is never written.
func (c Config) Save(path string) error {
	c.LLM.APIKey = ""

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
