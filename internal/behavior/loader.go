package behavior

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/boddenberg/budget-calendar-go/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var defaultProfiles []byte

type profileFile struct {
	Profiles []domain.CategoryBehaviorProfile `yaml:"profiles"`
}

// Default returns the registry built from the embedded profile table.
func Default() *Registry {
	r, err := Parse(defaultProfiles)
	if err != nil {
		panic("behavior: invalid embedded profiles: " + err.Error())
	}
	return r
}

// Parse builds a registry from a YAML profile document.
func Parse(data []byte) (*Registry, error) {
	var f profileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode behavior profiles: %w", err)
	}
	return NewRegistry(f.Profiles)
}

// Load reads a YAML profile file. An empty path yields the embedded defaults.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read behavior profiles %s: %w", path, err)
	}
	return Parse(data)
}
