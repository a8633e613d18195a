// Package config loads, normalizes, and validates vidinsight configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a .env file from the working directory,
// and honours environment fallbacks such as GEMINI_API_KEY. The Config type
// centralizes every knob the CLI and the pipeline need, so the downloader,
// the remote provider, and the retry policy are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider names, and clear validation errors.
package config
