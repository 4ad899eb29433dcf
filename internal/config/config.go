package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the whole agent configuration. It is built once at startup and
// handed to components by value.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Survey  SurveyConfig  `mapstructure:"survey" yaml:"survey"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	LLM     LLMConfig     `mapstructure:"llm" yaml:"llm"`
	Persona PersonaConfig `mapstructure:"persona" yaml:"persona"`
}

// LoggerConfig configures zap output.
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

// ColorConfig maps log levels to terminal color names.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Browser drivers.
const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
)

// BrowserConfig selects and tunes the browser driver.
type BrowserConfig struct {
	Driver         string        `mapstructure:"driver" yaml:"driver"`
	Engine         string        `mapstructure:"engine" yaml:"engine"`
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	SlowMo         time.Duration `mapstructure:"slow_mo" yaml:"slow_mo"`
	StorageState   string        `mapstructure:"storage_state" yaml:"storage_state"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	ChromePath     string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	InstallDrivers bool          `mapstructure:"install_drivers" yaml:"install_drivers"`
}

// SurveyConfig describes the target site entry point.
type SurveyConfig struct {
	EntryURL          string        `mapstructure:"entry_url" yaml:"entry_url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StartTimeout      time.Duration `mapstructure:"start_timeout" yaml:"start_timeout"`
	StartupPause      time.Duration `mapstructure:"startup_pause" yaml:"startup_pause"`
	SettleTimeout     time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
}

// AgentConfig bounds the run loop and every page-level wait.
type AgentConfig struct {
	MaxPages           int           `mapstructure:"max_pages" yaml:"max_pages"`
	LoadTimeout        time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	ClickTimeout       time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	SettleTimeout      time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
	ScreenshotTimeout  time.Duration `mapstructure:"screenshot_timeout" yaml:"screenshot_timeout"`
	ReasoningTimeout   time.Duration `mapstructure:"reasoning_timeout" yaml:"reasoning_timeout"`
	SettlePause        time.Duration `mapstructure:"settle_pause" yaml:"settle_pause"`
	SnapshotPause      time.Duration `mapstructure:"snapshot_pause" yaml:"snapshot_pause"`
	FullPageScreenshot bool          `mapstructure:"full_page_screenshot" yaml:"full_page_screenshot"`
}

// LLMProvider names a reasoning backend.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMConfig configures the reasoning service client.
type LLMConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// PersonaConfig points at the respondent profile.
type PersonaConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// NewDefaultConfig creates a configuration populated with default values only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "survey-agent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.driver", DriverPlaywright)
	v.SetDefault("browser.engine", "firefox")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.slow_mo", "50ms")
	v.SetDefault("browser.storage_state", "auth.json")
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.default_timeout", "30s")
	v.SetDefault("browser.install_drivers", true)
	v.SetDefault("browser.chrome_path", "")

	// -- Survey --
	v.SetDefault("survey.entry_url", "https://www.qmee.com/en-us/surveys")
	v.SetDefault("survey.navigation_timeout", "60s")
	v.SetDefault("survey.start_timeout", "10s")
	v.SetDefault("survey.startup_pause", "3s")
	v.SetDefault("survey.settle_timeout", "30s")

	// -- Agent --
	v.SetDefault("agent.max_pages", 20)
	v.SetDefault("agent.load_timeout", "30s")
	v.SetDefault("agent.click_timeout", "10s")
	v.SetDefault("agent.settle_timeout", "30s")
	v.SetDefault("agent.screenshot_timeout", "15s")
	v.SetDefault("agent.reasoning_timeout", "90s")
	v.SetDefault("agent.settle_pause", "2s")
	v.SetDefault("agent.snapshot_pause", "1s")
	v.SetDefault("agent.full_page_screenshot", true)

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderGemini))
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_timeout", "60s")
	v.SetDefault("llm.temperature", 0.0)
	// The reply is a bare index. Thinking models count reasoning tokens
	// against this cap, so raise it or set 0 when selecting one.
	v.SetDefault("llm.max_tokens", 16)
	v.SetDefault("llm.max_retries", 0)
	v.SetDefault("llm.requests_per_minute", 0)

	// -- Persona --
	v.SetDefault("persona.path", "persona.json")
}

// EnvPrefix prefixes every environment override, e.g. SURVEY_AGENT_LLM_ENDPOINT.
const EnvPrefix = "SURVEY_AGENT"

// BindEnvironment lets SURVEY_AGENT_<SECTION>_<KEY> override any key that has
// a default. Keys without a default are invisible to Unmarshal, so every
// field is registered in SetDefaults.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := Unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Unmarshal decodes v without validating it, resolving the API key from the
// provider's conventional environment variable when none is configured.
func Unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigurationError{Field: "config", Err: fmt.Errorf("error unmarshaling config: %w", err)}
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}
	return &cfg, nil
}

func apiKeyFromEnv(p LLMProvider) string {
	switch p {
	case ProviderGemini:
		return os.Getenv("GOOGLE_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}

// Validate checks required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Browser.Validate(); err != nil {
		return err
	}
	if err := c.Agent.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Survey.Validate(); err != nil {
		return err
	}
	if c.Persona.Path == "" {
		return &ConfigurationError{Field: "persona.path", Err: errRequired}
	}
	return nil
}

// Validate checks the browser section.
func (b *BrowserConfig) Validate() error {
	switch b.Driver {
	case DriverPlaywright:
		switch b.Engine {
		case "firefox", "chromium", "webkit":
		default:
			return &ConfigurationError{Field: "browser.engine", Err: fmt.Errorf("unsupported engine %q", b.Engine)}
		}
	case DriverChromedp:
	default:
		return &ConfigurationError{Field: "browser.driver", Err: fmt.Errorf("unsupported driver %q", b.Driver)}
	}
	if b.StorageState == "" {
		return &ConfigurationError{Field: "browser.storage_state", Err: errRequired}
	}
	return nil
}

// Validate checks the survey section.
func (s *SurveyConfig) Validate() error {
	if s.EntryURL == "" {
		return &ConfigurationError{Field: "survey.entry_url", Err: errRequired}
	}
	if s.NavigationTimeout <= 0 {
		return &ConfigurationError{Field: "survey.navigation_timeout", Err: errPositive}
	}
	return nil
}

// Validate checks the agent section. Every wait must be bounded.
func (a *AgentConfig) Validate() error {
	if a.MaxPages <= 0 {
		return &ConfigurationError{Field: "agent.max_pages", Err: errPositive}
	}
	bounded := map[string]time.Duration{
		"agent.load_timeout":       a.LoadTimeout,
		"agent.click_timeout":      a.ClickTimeout,
		"agent.settle_timeout":     a.SettleTimeout,
		"agent.screenshot_timeout": a.ScreenshotTimeout,
		"agent.reasoning_timeout":  a.ReasoningTimeout,
	}
	for field, d := range bounded {
		if d <= 0 {
			return &ConfigurationError{Field: field, Err: errPositive}
		}
	}
	if a.SettlePause < 0 || a.SnapshotPause < 0 {
		return &ConfigurationError{Field: "agent.settle_pause", Err: fmt.Errorf("pauses must not be negative")}
	}
	return nil
}

// Validate checks the LLM section.
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return &ConfigurationError{
			Field: "llm.provider",
			Err:   fmt.Errorf("unsupported provider %q (supported: %s, %s)", l.Provider, ProviderGemini, ProviderOpenAI),
		}
	}
	if l.Model == "" {
		return &ConfigurationError{Field: "llm.model", Err: errRequired}
	}
	if l.APIKey == "" {
		return &ConfigurationError{Field: "llm.api_key", Err: fmt.Errorf("no API key configured for provider %s", l.Provider)}
	}
	if l.MaxRetries < 0 {
		return &ConfigurationError{Field: "llm.max_retries", Err: fmt.Errorf("must not be negative")}
	}
	if l.RequestsPerMinute < 0 {
		return &ConfigurationError{Field: "llm.requests_per_minute", Err: fmt.Errorf("must not be negative")}
	}
	return nil
}
