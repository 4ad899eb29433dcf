package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func requireConfigErr(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %T", err)
	assert.Equal(t, field, cfgErr.Field)
}

func TestLoadPersona_JSON(t *testing.T) {
	path := writeFile(t, "persona.json", `{
		"name": "Alex",
		"about_you": {"date_of_birth": "1990-05-14", "gender": "female"},
		"household": {"children": 2}
	}`)

	p, err := LoadPersona(path)
	require.NoError(t, err)

	assert.Equal(t, time.Date(1990, time.May, 14, 0, 0, 0, 0, time.UTC), p.BirthDate())
	assert.Contains(t, p.JSON(), `"date_of_birth":"1990-05-14"`)
	assert.Contains(t, p.JSON(), `"name":"Alex"`)
}

func TestLoadPersona_YAML(t *testing.T) {
	path := writeFile(t, "persona.yaml", `
name: Alex
about_you:
  date_of_birth: "1985-12-01"
interests: [cycling, cooking]
`)

	p, err := LoadPersona(path)
	require.NoError(t, err)
	assert.Equal(t, time.December, p.BirthDate().Month())
	assert.Equal(t, 1, p.BirthDate().Day())
	assert.Contains(t, p.JSON(), `"interests":["cycling","cooking"]`)
}

func TestLoadPersona_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPersona(filepath.Join(t.TempDir(), "nope.json"))
		requireConfigErr(t, err, "persona.path")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := LoadPersona(writeFile(t, "p.json", `{"about_you": `))
		requireConfigErr(t, err, "persona")
	})

	t.Run("no about_you", func(t *testing.T) {
		_, err := LoadPersona(writeFile(t, "p.json", `{"name": "x"}`))
		requireConfigErr(t, err, "persona.about_you")
	})

	t.Run("wrong date format", func(t *testing.T) {
		_, err := LoadPersona(writeFile(t, "p.json", `{"about_you": {"date_of_birth": "14/05/1990"}}`))
		requireConfigErr(t, err, "persona.about_you.date_of_birth")
	})

	t.Run("future date", func(t *testing.T) {
		now := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err := NewPersona(map[string]any{
			"about_you": map[string]any{"date_of_birth": "2030-01-01"},
		}, now)
		requireConfigErr(t, err, "persona.about_you.date_of_birth")
	})
}

func TestPersona_IsImmutable(t *testing.T) {
	src := map[string]any{
		"about_you": map[string]any{"date_of_birth": "1990-05-14"},
		"tags":      []any{"a"},
	}
	p, err := NewPersona(src, time.Now())
	require.NoError(t, err)
	before := p.JSON()

	src["about_you"].(map[string]any)["date_of_birth"] = "2000-01-01"
	src["tags"].([]any)[0] = "b"

	copied := p.Profile()
	copied["name"] = "mutated"

	assert.Equal(t, before, p.JSON())
	assert.NotContains(t, p.Profile(), "name")
	assert.Equal(t, 1990, p.BirthDate().Year())
}

func TestRequireSessionFile(t *testing.T) {
	require.NoError(t, RequireSessionFile(writeFile(t, "auth.json", `{"cookies": []}`)))

	err := RequireSessionFile(filepath.Join(t.TempDir(), "auth.json"))
	requireConfigErr(t, err, "browser.storage_state")
	assert.Contains(t, err.Error(), "not found")

	requireConfigErr(t, RequireSessionFile(t.TempDir()), "browser.storage_state")
}
