// Package config loads, normalizes, and validates audiosurvey configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours AUDIOSURVEY_* environment
// overrides for the directory layout. The Config type centralizes every knob
// the content store and CLI need: where uploaded archives live, where audio
// assets are stored for serving, the staging area used during extraction,
// option sampling, and pairing prefixes.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
