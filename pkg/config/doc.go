// Package config parses and validates the YAML configuration document,
// merges environment overrides on top of it (env wins over file wins
// over defaults), and watches a config file for hot-reload.
package config
