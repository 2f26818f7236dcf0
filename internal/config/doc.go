// Package config loads, normalizes, and validates cadence configuration.
//
// Configuration is TOML (see sample_config.toml) with environment overrides
// for secrets. Load applies defaults, expands paths, pulls credentials from
// the environment, and rejects configurations that cannot run: an active LLM
// provider without credentials, or score weights that do not sum to 1.0.
package config
