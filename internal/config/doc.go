// Package config loads, normalizes, and validates podscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PODCASTINDEX_API_KEY. The Config type centralizes every knob the daemon and
// CLI need, allowing download/transcript directories and index credentials to
// be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
