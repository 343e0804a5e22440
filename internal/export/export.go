// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chat transcripts to shareable files.
// Supports Markdown, HTML and JSON output with optional metadata.
package export

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jharlan/pymolchat/internal/model"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export converts a transcript to the target format and returns the content.
	Export(tr *model.Transcript) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".html").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the session information header.
	IncludeMetadata bool

	// IncludeTimestamps includes per-turn timestamps.
	IncludeTimestamps bool

	// IncludeWelcome keeps the greeting turn in the output. Most exports
	// only want the actual conversation.
	IncludeWelcome bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark"
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		OpenAfterExport:   true,
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeWelcome:    false,
		Theme:             "dark",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a transcript to a file using the specified exporter.
// Returns the output file path or an error.
//
// TIMEZONE: Per-turn timestamps are formatted without timezone information.
// The transcript's CreatedAt timestamp in metadata includes timezone
// (RFC3339 format).
func ExportToFile(tr *model.Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(tr)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	// Generate output filename
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("pymol_chat_%s_%s%s",
		sanitizeFilename(tr.Preview()),
		timestamp,
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	// Open in default application if requested
	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal - file was still created successfully
			fmt.Printf("Warning: Could not open file: %v\n", err)
		}
	}

	return outputPath, nil
}

// ExportMarkdown exports to Markdown format.
func ExportMarkdown(tr *model.Transcript, opts *Options) (string, error) {
	exporter := NewMarkdownExporter(opts)
	return ExportToFile(tr, exporter, opts)
}

// ExportHTML exports to HTML format.
func ExportHTML(tr *model.Transcript, opts *Options) (string, error) {
	exporter := NewHTMLExporter(opts)
	return ExportToFile(tr, exporter, opts)
}

// ExportJSON exports to JSON format.
func ExportJSON(tr *model.Transcript, opts *Options) (string, error) {
	exporter := NewJSONExporter(opts)
	return ExportToFile(tr, exporter, opts)
}

// ExportAs exports in the named format: "markdown", "html", or "json".
// An empty format means Markdown; anything else is an error.
func ExportAs(tr *model.Transcript, format string, opts *Options) (string, error) {
	switch format {
	case "", "markdown", "md":
		return ExportMarkdown(tr, opts)
	case "html":
		return ExportHTML(tr, opts)
	case "json":
		return ExportJSON(tr, opts)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// exportableTurns returns the turns to include in an export, honoring
// the IncludeWelcome option.
func exportableTurns(tr *model.Transcript, opts *Options) []*model.Turn {
	if opts.IncludeWelcome {
		return tr.Turns
	}
	turns := make([]*model.Turn, 0, len(tr.Turns))
	for _, turn := range tr.Turns {
		if turn.Welcome {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	// Limit length
	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			// Replace control characters
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "session"
	}

	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		// Properly quote path for Windows cmd - use quoted empty string for
		// window title and the path should be the last argument
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
