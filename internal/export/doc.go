// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to shareable files.
//
// This package supports exporting transcripts to various formats with
// styling, metadata, and optional opening in external applications.
//
// # Key Types
//
//   - Exporter: the export interface (Export, FileExtension, MimeType)
//   - Options: export configuration options
//
// # Supported Formats
//
//   - JSON: machine-readable, complete transcript structure
//   - Markdown: human-readable with per-turn sections and command fences
//   - HTML: standalone styled page with dark/light theme toggle
//
// # Usage
//
// Export a transcript to Markdown in the current directory:
//
//	opts := export.DefaultOptions()
//	path, err := export.ExportMarkdown(transcript, opts)
//
// Or drive an exporter directly:
//
//	content, err := export.NewHTMLExporter(opts).Export(transcript)
package export
