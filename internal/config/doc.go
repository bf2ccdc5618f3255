// Package config loads, normalizes, and validates the Airlift TOML
// configuration file.
package config
