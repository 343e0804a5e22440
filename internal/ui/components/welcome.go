// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jharlan/pymolchat/internal/ui/styles"
)

// =============================================================================
// WELCOME BANNER
// =============================================================================

// logo is the startup banner. ASCII-only so it renders on any terminal.
const logo = "p y m o l c h a t"

// WelcomeBanner renders the startup banner shown above the first turn.
type WelcomeBanner struct {
	Version    string
	BackendURL string
	MaxWidth   int
}

// NewWelcomeBanner creates a welcome banner.
func NewWelcomeBanner(version, backendURL string) WelcomeBanner {
	return WelcomeBanner{
		Version:    version,
		BackendURL: backendURL,
		MaxWidth:   80,
	}
}

// Render renders the banner.
func (w WelcomeBanner) Render(theme *styles.Theme) string {
	var sb strings.Builder

	sb.WriteString(theme.WelcomeLogo.Render(logo))
	sb.WriteString("\n")
	if w.Version != "" {
		sb.WriteString(theme.WelcomeVersion.Render("v" + w.Version))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(theme.WelcomeInfo.Render("Natural-language PyMOL scripting"))
	sb.WriteString("\n")
	if w.BackendURL != "" {
		sb.WriteString(theme.WelcomeInfo.Render("backend: " + w.BackendURL))
		sb.WriteString("\n")
	}

	maxWidth := w.MaxWidth
	if maxWidth < 40 {
		maxWidth = 40
	}

	return theme.WelcomeBox.MaxWidth(maxWidth).Render(sb.String())
}
