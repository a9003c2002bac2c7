package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every override, e.g. REACTORSIM_DT or
// REACTORSIM_INITIAL_ROD_INSERTION.
const EnvPrefix = "REACTORSIM_"

// ApplyEnv overrides cfg from the process environment. Unset variables
// leave fields untouched.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, nil)
}

func applyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
