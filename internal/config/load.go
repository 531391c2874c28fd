package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultNames are the file names looked up in the default directory, in
// order.
var DefaultNames = []string{"caniput.hcl", "caniput.toml"}

// DefaultDir returns the directory searched when no path is given:
// $XDG_CONFIG_HOME/caniput or its platform equivalent.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "caniput"), nil
}

// Load reads the configuration. An explicit path must exist. With an
// empty path the default directory is searched and a missing file yields
// an empty File. The returned string is the file actually read, or "".
func Load(path string) (*File, string, error) {
	resolved, err := resolve(path)
	if err != nil {
		return nil, "", err
	}
	if resolved == "" {
		return &File{}, "", nil
	}

	loader, err := LoaderFor(resolved)
	if err != nil {
		return nil, "", err
	}
	f, err := loader.Load(resolved)
	if err != nil {
		return nil, "", err
	}
	if err := f.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config %s: %w", resolved, err)
	}
	return f, resolved, nil
}

func resolve(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}

	dir, err := DefaultDir()
	if err != nil {
		// No home directory: behave as if no file exists.
		return "", nil
	}
	for _, name := range DefaultNames {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config file: %w", err)
		}
	}
	return "", nil
}
