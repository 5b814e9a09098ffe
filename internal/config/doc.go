// Package config defines the prop settings and provides helpers to load,
// validate and save them in YAML format.
//
// A Config is built once at startup, defaults are filled by Validate, and the
// resulting value is handed to constructors instead of being read globally.
package config
