package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
)

// StorageState mirrors the session file playwright writes with
// BrowserContext.StorageState.
type StorageState struct {
	Cookies []StoredCookie `json:"cookies"`
	Origins []StoredOrigin `json:"origins"`
}

// StoredCookie is one persisted cookie. Expires is unix seconds, -1 for session cookies.
type StoredCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// StoredOrigin holds localStorage entries of one origin.
type StoredOrigin struct {
	Origin       string        `json:"origin"`
	LocalStorage []StoredEntry `json:"localStorage"`
}

// StoredEntry is a localStorage key/value pair.
type StoredEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadStorageState reads a playwright storage-state file.
func LoadStorageState(path string) (*StorageState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read storage state: %w", err)
	}
	var state StorageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse storage state %s: %w", path, err)
	}
	return &state, nil
}

// CookieParams converts the stored cookies for network.SetCookies.
func (s *StorageState) CookieParams() []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			p.SameSite = network.CookieSameSiteStrict
		case "lax":
			p.SameSite = network.CookieSameSiteLax
		case "none":
			p.SameSite = network.CookieSameSiteNone
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			expires := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &expires
		}
		params = append(params, p)
	}
	return params
}

// LocalStorageScript returns a script that seeds localStorage for the stored
// origins on every new document, or "" when nothing is stored.
func (s *StorageState) LocalStorageScript() (string, error) {
	seed := make(map[string]map[string]string)
	for _, o := range s.Origins {
		if len(o.LocalStorage) == 0 {
			continue
		}
		entries := make(map[string]string, len(o.LocalStorage))
		for _, e := range o.LocalStorage {
			entries[e.Name] = e.Value
		}
		seed[o.Origin] = entries
	}
	if len(seed) == 0 {
		return "", nil
	}

	encoded, err := json.Marshal(seed)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
	const seed = %s;
	const entries = seed[window.location.origin];
	if (!entries) return;
	for (const [k, v] of Object.entries(entries)) {
		if (window.localStorage.getItem(k) === null) window.localStorage.setItem(k, v);
	}
})();`, encoded), nil
}
