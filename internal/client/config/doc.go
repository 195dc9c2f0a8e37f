// Package config loads runtime configuration for the uploader CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with --config. Files ending in .yaml or
//     .yml are read as YAML, anything else as JSON. Only keys present in the
//     file override.
//  3. Command-line flags registered with RegisterFlags.
//
// Durations use timex.Duration, so they can be strings like "5s" or integer
// nanoseconds:
//
//	server_addr: 127.0.0.1:50051
//	data_dir: ~/.ente
//	retry_delays: ["2s", "5s", "10s"]
//	live_photo_tolerance: 24h
package config
