package config

import (
	"fmt"
	"os"
)

// RequireSessionFile checks the persisted browser session exists before any
// browser is launched. Capturing the session is done outside this program.
func RequireSessionFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ConfigurationError{
				Field: "browser.storage_state",
				Err:   fmt.Errorf("authentication file (%s) not found; log in once and save the browser storage state first", path),
			}
		}
		return &ConfigurationError{Field: "browser.storage_state", Err: err}
	}
	if info.IsDir() {
		return &ConfigurationError{Field: "browser.storage_state", Err: fmt.Errorf("%s is a directory", path)}
	}
	return nil
}
