// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the pymolchat TUI.
package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/jharlan/pymolchat/internal/ui/styles"
)

// =============================================================================
// COMMAND BLOCK RENDERER
// =============================================================================

// CommandBlock renders the PyMOL commands of an assistant turn as a
// labeled, fixed-width code block with a copy affordance.
type CommandBlock struct {
	Commands []string
	MaxWidth int

	// Copied switches the copy hint to a transient "Copied" indication.
	Copied bool
}

// NewCommandBlock creates a command block for the given commands.
func NewCommandBlock(commands []string) CommandBlock {
	return CommandBlock{
		Commands: commands,
		MaxWidth: 80,
	}
}

// SetMaxWidth sets the maximum width for the block.
func (c *CommandBlock) SetMaxWidth(width int) {
	c.MaxWidth = width
}

// Text returns the commands joined by newlines, one per line. This is
// exactly what the copy action places on the clipboard.
func (c CommandBlock) Text() string {
	return strings.Join(c.Commands, "\n")
}

// Render renders the command block with syntax highlighting.
func (c CommandBlock) Render() string {
	if len(c.Commands) == 0 {
		return ""
	}

	// PyMOL commands highlight well as Python.
	highlighted := highlightCommands(c.Text())
	lines := strings.Split(highlighted, "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(3).
		Align(lipgloss.Right).
		MarginRight(1)

	var renderedLines []string
	for i, line := range lines {
		lineNum := lineNumStyle.Render(formatLineNum(i + 1))
		renderedLines = append(renderedLines, lineNum+line)
	}
	content := strings.Join(renderedLines, "\n")

	// Header: language badge plus the copy affordance.
	badge := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Background(styles.OverlayDim).
		Padding(0, 1).
		Bold(true).
		Render("PyMOL")

	var hint string
	if c.Copied {
		hint = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Background(styles.Overlay).
			Padding(0, 1).
			Bold(true).
			Render("Copied")
	} else {
		hint = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Background(styles.Overlay).
			Padding(0, 1).
			Render("[C-y] copy")
	}
	header := badge + " " + hint + "\n"

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(1, 2).
		MaxWidth(maxWidth).
		Render(header + content)
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlightCommands applies Python syntax highlighting using the chroma
// library. Returns the input unchanged if highlighting fails, so a broken
// terminal profile never loses the commands themselves.
func highlightCommands(code string) string {
	lexer := lexers.Get("python")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return strings.TrimRight(buf.String(), "\n")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// formatLineNum converts a line number to string without fmt.
func formatLineNum(n int) string {
	if n <= 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
