// Package config owns the srpack configuration file: TOML schema, defaults,
// path expansion, environment fallbacks, and validation.
//
// Builds read everything through a *Config so the CLI, the orchestrator, and
// tests share one source of truth for directories, bundle naming, and wake
// word defaults. Load never partially applies a file: a config that fails
// validation is rejected whole.
package config
