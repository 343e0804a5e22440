// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for pymolchat.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Chat client's backend endpoint
//   - LLMConfig: Upstream completion provider settings
//   - ServerConfig: Local HTTP server settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PYMOLCHAT_*)
//   - ~/.pymolchat/config.toml
//   - ~/.pymolchat/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	addr := cfg.ServerAddr()
//	model := cfg.LLM.Model
//
// A Watcher can keep the global config current while the process runs:
//
//	w, _ := config.NewWatcher(path, func(cfg *config.Config) { ... })
//	w.Watch()
//	defer w.Close()
package config
