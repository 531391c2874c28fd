package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Loader decodes one configuration file format into the File model.
type Loader interface {
	Load(path string) (*File, error)
}

// loaders maps file extensions to their Loader.
var loaders = map[string]Loader{
	".hcl":  HCLLoader{},
	".toml": TOMLLoader{},
}

// LoaderFor returns the Loader for path's extension.
func LoaderFor(path string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l, ok := loaders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported config format %q for %s (want .hcl or .toml)", ext, path)
	}
	return l, nil
}
