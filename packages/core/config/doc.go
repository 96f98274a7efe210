// Package config handles configuration loading and management for httpcst.
//
// It provides functionality for:
//   - Loading configuration from .httpcst.config.json, .httpcstrc,
//     .httpcst.yaml or .httpcst.toml files
//   - Default configuration values
//   - Merging configuration layers, later layers taking precedence
package config
