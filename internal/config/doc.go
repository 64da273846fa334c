// Package config loads, normalizes, and validates pspman configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PSPMAN_PREFIX. The Config value is built once per invocation and handed to
// every component that needs the clone directory, install prefix, or run
// switches, so there is no process-wide mutable configuration.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
