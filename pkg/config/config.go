// Package config loads the server configuration and formula library
// files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quartzlabs/formula-engine/pkg/engine"
)

// Config is the server configuration.
type Config struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	CacheMaximumSize   int    `yaml:"cacheMaximumSize"`
	CacheReductionSize int    `yaml:"cacheReductionSize"`
	CaseSensitive      bool   `yaml:"caseSensitive"`

	// FormulasFile is an optional formula library preloaded at startup.
	FormulasFile string `yaml:"formulasFile"`
}

// Default returns the configuration used when no file or flags are
// given.
func Default() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8790,
		CacheMaximumSize:   engine.DefaultCacheMaximumSize,
		CacheReductionSize: engine.DefaultCacheReductionSize,
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.CacheMaximumSize < 1 {
		return fmt.Errorf("cacheMaximumSize must be at least 1, got %d", c.CacheMaximumSize)
	}
	if c.CacheReductionSize < 1 {
		return fmt.Errorf("cacheReductionSize must be at least 1, got %d", c.CacheReductionSize)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LibraryFormula is one entry of a formula library file.
type LibraryFormula struct {
	Name        string `yaml:"name"`
	Expression  string `yaml:"expression"`
	Description string `yaml:"description"`
}

// LoadLibrary reads a YAML formula library file: a list of named
// formula definitions to register at startup.
func LoadLibrary(path string) ([]LibraryFormula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading formula library: %w", err)
	}

	var lib struct {
		Formulas []LibraryFormula `yaml:"formulas"`
	}
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing formula library %s: %w", path, err)
	}

	for i, f := range lib.Formulas {
		if f.Name == "" {
			return nil, fmt.Errorf("formula library entry %d is missing a name", i)
		}
		if f.Expression == "" {
			return nil, fmt.Errorf("formula '%s' is missing an expression", f.Name)
		}
	}
	return lib.Formulas, nil
}
