// Package config loads, parses and validates application settings from a
// .env file, an optional config.yaml and SKILLMATCH_-prefixed environment
// variables.
package config
