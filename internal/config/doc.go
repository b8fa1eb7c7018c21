// Package config handles configuration loading for the handoff binaries.
//
// Configuration is loaded from a YAML file with ${VAR} environment variable
// expansion. Duration fields use Go's time.ParseDuration syntax. A missing
// file is not an error; every field has a fixed default so both binaries run
// with zero configuration against a local backend.
package config
