// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Bridge  BridgeConfig  `mapstructure:"bridge" yaml:"bridge"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Reports ReportConfig  `mapstructure:"reports" yaml:"reports"`
	Game    GameConfig    `mapstructure:"game" yaml:"game"`
}

// GameConfig points at optional game lore fed into LLM prompts.
type GameConfig struct {
	ContextFile string `mapstructure:"context_file" yaml:"context_file"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BridgeConfig holds the connection details for the game control endpoint.
type BridgeConfig struct {
	URL          string        `mapstructure:"url" yaml:"url"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	OutputWindow int           `mapstructure:"output_window" yaml:"output_window"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderLocal  LLMProvider = "local"
)

// LLMConfig configures the two-tier model routing.
type LLMConfig struct {
	Fast     LLMModelConfig `mapstructure:"fast" yaml:"fast"`
	Powerful LLMModelConfig `mapstructure:"powerful" yaml:"powerful"`
}

// LLMModelConfig defines the configuration for a single model backend.
type LLMModelConfig struct {
	Provider        LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model           string        `mapstructure:"model" yaml:"model"`
	APIKey          string        `mapstructure:"api_key" yaml:"-"`
	Endpoint        string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout      time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature     float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MinCallInterval time.Duration `mapstructure:"min_call_interval" yaml:"min_call_interval"`
}

// MonitorConfig tunes the supervised monitoring loop.
type MonitorConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
	Duration      time.Duration `mapstructure:"duration" yaml:"duration"`
	CommandPause  time.Duration `mapstructure:"command_pause" yaml:"command_pause"`
	OutputWindow  int           `mapstructure:"output_window" yaml:"output_window"`
}

// ReportConfig controls where run artifacts land on disk.
type ReportConfig struct {
	Dir            string `mapstructure:"dir" yaml:"dir"`
	PromptDir      string `mapstructure:"prompt_dir" yaml:"prompt_dir"`
	ArchivePrompts bool   `mapstructure:"archive_prompts" yaml:"archive_prompts"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "doortelnet-tester")
	v.SetDefault("logger.log_file", "doortelnet-tester.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Bridge --
	v.SetDefault("bridge.url", "http://localhost:8080/mcp")
	v.SetDefault("bridge.timeout", "10s")
	v.SetDefault("bridge.output_window", 30)

	// -- LLM --
	v.SetDefault("llm.fast.provider", "local")
	v.SetDefault("llm.fast.model", "qwen/qwen3-4b-thinking-2507")
	v.SetDefault("llm.fast.endpoint", "http://localhost:1234/v1/chat/completions")
	v.SetDefault("llm.fast.api_timeout", "120s")
	v.SetDefault("llm.fast.temperature", 0.2)
	v.SetDefault("llm.fast.max_tokens", 2048)
	v.SetDefault("llm.fast.min_call_interval", "1s")

	v.SetDefault("llm.powerful.provider", "openai")
	v.SetDefault("llm.powerful.model", "gpt-5")
	v.SetDefault("llm.powerful.endpoint", "https://api.openai.com/v1/responses")
	v.SetDefault("llm.powerful.api_timeout", "120s")
	v.SetDefault("llm.powerful.temperature", 0.2)
	v.SetDefault("llm.powerful.max_tokens", 4096)
	v.SetDefault("llm.powerful.min_call_interval", "1s")

	// -- Monitor --
	v.SetDefault("monitor.tick_interval", "5s")
	v.SetDefault("monitor.check_interval", "10s")
	v.SetDefault("monitor.duration", "60s")
	v.SetDefault("monitor.command_pause", "1s")
	v.SetDefault("monitor.output_window", 20)

	// -- Reports --
	v.SetDefault("reports.dir", ".")
	v.SetDefault("reports.prompt_dir", "llm_prompts")
	v.SetDefault("reports.archive_prompts", true)

	// -- Game --
	v.SetDefault("game.context_file", "RoseGamePlay.md")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("llm.fast.api_key", "DOORTELNET_LLM_FAST_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("llm.powerful.api_key", "DOORTELNET_LLM_POWERFUL_API_KEY", "OPENAI_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually fall back to the environment if Unmarshal didn't pick it up
	if cfg.LLM.Powerful.Provider == ProviderOpenAI && cfg.LLM.Powerful.APIKey == "" {
		cfg.LLM.Powerful.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.Fast.Provider == ProviderOpenAI && cfg.LLM.Fast.APIKey == "" {
		cfg.LLM.Fast.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Bridge.URL == "" {
		return fmt.Errorf("bridge.url is a required configuration field")
	}
	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("bridge.timeout must be a positive duration")
	}
	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("monitor.tick_interval must be a positive duration")
	}
	if c.Monitor.CheckInterval < c.Monitor.TickInterval {
		return fmt.Errorf("monitor.check_interval must be at least monitor.tick_interval")
	}
	if c.Monitor.Duration <= 0 {
		return fmt.Errorf("monitor.duration must be a positive duration")
	}
	if err := c.LLM.Fast.Validate("llm.fast"); err != nil {
		return err
	}
	if err := c.LLM.Powerful.Validate("llm.powerful"); err != nil {
		return err
	}
	return nil
}

// Validate checks a single model backend configuration.
func (m *LLMModelConfig) Validate(section string) error {
	switch m.Provider {
	case ProviderOpenAI, ProviderLocal:
	default:
		return fmt.Errorf("%s.provider must be one of %q, %q", section, ProviderOpenAI, ProviderLocal)
	}
	if m.Model == "" {
		return fmt.Errorf("%s.model is a required configuration field", section)
	}
	if m.Endpoint == "" {
		return fmt.Errorf("%s.endpoint is a required configuration field", section)
	}
	if m.APITimeout <= 0 {
		return fmt.Errorf("%s.api_timeout must be a positive duration", section)
	}
	return nil
}
