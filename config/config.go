package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evrptw/core/factory"
)

// EnvPrefix marks environment overrides. Nested keys are separated by a
// double underscore: EVRPTW_SOLVE__THREADS=4 sets solve.threads.
const EnvPrefix = "EVRPTW_"

type Config struct {
	Solve   SolveConfig          `json:"solve"`
	Solver  factory.ModuleConfig `json:"solver"`
	Output  OutputConfig         `json:"output"`
	Logging LoggingConfig        `json:"logging"`
	Metrics MetricsConfig        `json:"metrics"`
}

// Load reads the file at path, applies environment overrides and defaults,
// and validates the result. An empty path loads defaults and environment
// only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset section.
func (c *Config) SetDefaults() {
	c.Solve.SetDefaults()
	if c.Solver.Type == "" {
		c.Solver.Type = "highs"
	}
	c.Output.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Solve.Validate(); err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
