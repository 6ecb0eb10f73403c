// Package config holds the small set of knobs spec.md §5 and §9 leave
// configurable: the inliner's fixed-point iteration cap and a trace
// toggle for the weavec CLI's diagnostic output. There
// is deliberately no Uniquifier-flavor knob — spec.md §9(iii) settles on
// the structural flavor alone, so nothing here selects between flavors.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/weave-lang/weavec/internal/compiler"
)

// Config is the shape of a weave.yaml file.
type Config struct {
	// IterationCap bounds the analyze/inline fixed-point loop
	// (spec.md §5's "configurable iteration limit (default 20)"). Zero
	// or negative means compiler.DefaultIterationCap.
	IterationCap int `yaml:"iterationCap"`

	// Trace turns on the weavec CLI's stderr trace lines, the same as
	// passing its --trace flag.
	Trace bool `yaml:"trace"`
}

// Default returns the configuration a fresh install runs with: the
// compiler's own default iteration cap and tracing off.
func Default() Config {
	return Config{IterationCap: compiler.DefaultIterationCap, Trace: false}
}

// Load reads and parses a weave.yaml file at path. A missing file is not
// an error — it returns Default() — since weavec compile must work with
// no configuration present at all.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.IterationCap <= 0 {
		cfg.IterationCap = compiler.DefaultIterationCap
	}
	return cfg, nil
}
