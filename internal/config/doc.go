// Package config provides user configuration management for rtinspect.
//
// This package manages a YAML configuration file that stores connection
// defaults per project (channel, change filters, the last selected credential
// label) and application preferences. The file follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/rtinspect/config.yaml or $HOME/.config/rtinspect/config.yaml
//   - macOS: $HOME/.config/rtinspect/config.yaml
//   - Windows: %LOCALAPPDATA%\rtinspect\config.yaml
//
// # Security
//
// IMPORTANT: This package NEVER stores API keys or user JWTs. A realtime
// Config lives only in memory; RememberConnection copies its non-secret
// fields.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := registry.ConnectionConfig(ref)
//	...
//	registry.RememberConnection(store.Config(), "anon")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// WatchFile reloads the file when another process edits it.
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File writes are protected by a mutex and are atomic (temp file + rename).
package config
