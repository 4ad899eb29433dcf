package config

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Defaults --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, DriverPlaywright, cfg.Browser.Driver)
	assert.Equal(t, "firefox", cfg.Browser.Engine)
	assert.Equal(t, 50*time.Millisecond, cfg.Browser.SlowMo)
	assert.Equal(t, "auth.json", cfg.Browser.StorageState)
	assert.Equal(t, 60*time.Second, cfg.Survey.NavigationTimeout)
	assert.Equal(t, 20, cfg.Agent.MaxPages)
	assert.Equal(t, 10*time.Second, cfg.Agent.ClickTimeout)
	assert.Equal(t, 2*time.Second, cfg.Agent.SettlePause)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 16, cfg.LLM.MaxTokens)
	assert.Empty(t, cfg.LLM.Endpoint)
	assert.Empty(t, cfg.Browser.ChromePath)
	assert.Equal(t, 0, cfg.LLM.MaxRetries)
	assert.Equal(t, "persona.json", cfg.Persona.Path)
}

// -- Loading --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("yaml overrides defaults", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
agent:
  max_pages: 5
  settle_pause: 500ms
llm:
  provider: openai
  model: gpt-4o
  api_key: sk-test
browser:
  driver: chromedp
`)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Agent.MaxPages)
		assert.Equal(t, 500*time.Millisecond, cfg.Agent.SettlePause)
		assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
		assert.Equal(t, "sk-test", cfg.LLM.APIKey)
		assert.Equal(t, DriverChromedp, cfg.Browser.Driver)
	})

	t.Run("api key from provider environment", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "g-key")
		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "g-key", cfg.LLM.APIKey)
	})

	t.Run("environment overrides keys without a meaningful default", func(t *testing.T) {
		t.Setenv("SURVEY_AGENT_LLM_ENDPOINT", "http://stub/v1")
		t.Setenv("SURVEY_AGENT_BROWSER_CHROME_PATH", "/opt/chrome")
		t.Setenv("SURVEY_AGENT_LLM_API_KEY", "env-key")
		t.Setenv("SURVEY_AGENT_AGENT_MAX_PAGES", "3")
		v := viper.New()
		SetDefaults(v)
		BindEnvironment(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "http://stub/v1", cfg.LLM.Endpoint)
		assert.Equal(t, "/opt/chrome", cfg.Browser.ChromePath)
		assert.Equal(t, "env-key", cfg.LLM.APIKey)
		assert.Equal(t, 3, cfg.Agent.MaxPages)
	})

	t.Run("missing api key is a configuration error", func(t *testing.T) {
		t.Setenv("GOOGLE_API_KEY", "")
		t.Setenv("SURVEY_AGENT_LLM_API_KEY", "")
		v := viper.New()
		SetDefaults(v)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		var cfgErr *ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "llm.api_key", cfgErr.Field)
	})
}

// Every field must have a registered key, or environment overrides for it
// never reach Unmarshal.
func TestSetDefaults_CoversEveryField(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	known := make(map[string]bool)
	for _, k := range v.AllKeys() {
		known[k] = true
	}

	for _, key := range mapstructureKeys(reflect.TypeOf(Config{}), "") {
		assert.True(t, known[key], "no default registered for %s", key)
	}
}

func mapstructureKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		key := prefix + name
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Duration(0)) {
			keys = append(keys, mapstructureKeys(f.Type, key+".")...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// -- Validation --

func validConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LLM.APIKey = "test-key"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown driver", func(c *Config) { c.Browser.Driver = "selenium" }, "browser.driver"},
		{"unknown engine", func(c *Config) { c.Browser.Engine = "opera" }, "browser.engine"},
		{"no storage state", func(c *Config) { c.Browser.StorageState = "" }, "browser.storage_state"},
		{"zero bound", func(c *Config) { c.Agent.MaxPages = 0 }, "agent.max_pages"},
		{"unbounded click", func(c *Config) { c.Agent.ClickTimeout = 0 }, "agent.click_timeout"},
		{"unbounded settle", func(c *Config) { c.Agent.SettleTimeout = -time.Second }, "agent.settle_timeout"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "ollama" }, "llm.provider"},
		{"no model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"negative retries", func(c *Config) { c.LLM.MaxRetries = -1 }, "llm.max_retries"},
		{"no entry url", func(c *Config) { c.Survey.EntryURL = "" }, "survey.entry_url"},
		{"no persona", func(c *Config) { c.Persona.Path = "" }, "persona.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
