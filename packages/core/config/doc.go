// Package config handles configuration loading and management for hitbench.
//
// It provides functionality for:
//   - Loading configuration from .hitbench.config.json or .hitbenchrc files
//   - Default configuration values
//   - Merging command line overrides on top of file settings
package config
