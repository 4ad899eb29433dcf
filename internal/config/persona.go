package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BirthDateLayout is the calendar format required for about_you.date_of_birth.
const BirthDateLayout = "2006-01-02"

// Persona is the immutable respondent profile. Construct it with LoadPersona or
// NewPersona; the zero value is not usable.
type Persona struct {
	profile   map[string]any
	birthDate time.Time
	encoded   string
}

// LoadPersona reads and validates a persona file (.json, .yaml or .yml).
func LoadPersona(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigurationError{Field: "persona.path", Err: fmt.Errorf("%s not found, please create it", path)}
		}
		return nil, &ConfigurationError{Field: "persona.path", Err: err}
	}

	var profile map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &profile)
	default:
		err = json.Unmarshal(data, &profile)
	}
	if err != nil {
		return nil, &ConfigurationError{Field: "persona", Err: fmt.Errorf("malformed persona file %s: %w", path, err)}
	}
	return NewPersona(profile, time.Now())
}

// NewPersona validates profile and freezes a private copy of it. now bounds the
// birth date from above.
func NewPersona(profile map[string]any, now time.Time) (*Persona, error) {
	if len(profile) == 0 {
		return nil, &ConfigurationError{Field: "persona", Err: errRequired}
	}

	about, ok := profile["about_you"].(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Field: "persona.about_you", Err: errRequired}
	}
	var raw string
	switch v := about["date_of_birth"].(type) {
	case string:
		raw = v
	case time.Time:
		raw = v.Format(BirthDateLayout)
	}
	if strings.TrimSpace(raw) == "" {
		return nil, &ConfigurationError{Field: "persona.about_you.date_of_birth", Err: errRequired}
	}
	dob, err := time.Parse(BirthDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return nil, &ConfigurationError{
			Field: "persona.about_you.date_of_birth",
			Err:   fmt.Errorf("%q is not in YYYY-MM-DD format", raw),
		}
	}
	if dob.After(now) {
		return nil, &ConfigurationError{Field: "persona.about_you.date_of_birth", Err: fmt.Errorf("%s is in the future", raw)}
	}

	frozen, ok := deepCopy(profile).(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Field: "persona", Err: fmt.Errorf("unexpected profile shape")}
	}
	encoded, err := json.Marshal(frozen)
	if err != nil {
		return nil, &ConfigurationError{Field: "persona", Err: fmt.Errorf("profile is not JSON encodable: %w", err)}
	}

	return &Persona{profile: frozen, birthDate: dob, encoded: string(encoded)}, nil
}

// BirthDate returns the validated date of birth (UTC midnight).
func (p *Persona) BirthDate() time.Time { return p.birthDate }

// JSON returns the full profile as compact JSON.
func (p *Persona) JSON() string { return p.encoded }

// Profile returns a deep copy of the profile.
func (p *Persona) Profile() map[string]any {
	out, _ := deepCopy(p.profile).(map[string]any)
	return out
}

// deepCopy clones decoded JSON/YAML values. yaml.v3 may yield map[string]any or
// []any, both handled here.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return t
	}
}
