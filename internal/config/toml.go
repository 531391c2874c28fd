package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader reads caniput.toml files. Unknown keys are rejected, matching
// the HCL decoder.
type TOMLLoader struct{}

// Load decodes the TOML file at path.
func (TOMLLoader) Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var f File
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}
