// Package config loads, validates, and normalizes the cardoff configuration.
//
// Configuration lives in a TOML file (default ~/.config/cardoff/config.toml)
// and is handed to components as an explicit value; no component reads the
// environment or falls back to implicit defaults at decision time.
package config
