// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format converts raw assistant replies into safe HTML markup.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// ESCAPING
// =============================================================================

// escaper maps HTML-significant characters to their entity forms.
// Ampersand must be listed first so already-escaped entities are not
// double-mangled on the single pass Replacer performs.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Escape maps &, <, >, " and ' to their safe entity forms. Use it
// whenever raw text (error messages, command text) is embedded into
// rendered output.
func Escape(text string) string {
	return escaper.Replace(text)
}

// =============================================================================
// MARKUP RENDERING
// =============================================================================

var (
	boldRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*\n]+)\*`)
	codeRe    = regexp.MustCompile("`([^`\n]+)`")
	headingRe = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.*)$`)
)

// Render converts a raw reply with lightweight markup into safe HTML.
//
// The text is escaped first so user-supplied content can never inject
// markup, then the substitutions run in a fixed order: bold, italic,
// inline code, headings, and finally newline to <br>. Headings must be
// rewritten before newlines are, otherwise the line-anchored heading
// pattern has nothing left to match. Unmatched markers (a lone *, a
// stray backtick) pass through as literal escaped characters.
func Render(rawText string) string {
	out := Escape(rawText)

	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")
	out = codeRe.ReplaceAllString(out, "<code>$1</code>")

	out = headingRe.ReplaceAllStringFunc(out, func(line string) string {
		sub := headingRe.FindStringSubmatch(line)
		level := len(sub[1])
		return fmt.Sprintf("<h%d>%s</h%d>", level, sub[2], level)
	})

	out = strings.ReplaceAll(out, "\n", "<br>")
	return out
}
