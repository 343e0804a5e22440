// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the pymolchat TUI.

This package defines the color palette and the Theme struct used throughout
the application. All colors use Lip Gloss AdaptiveColor for automatic
light/dark terminal detection.

# Color System (colors.go)

## Primary Accent Colors

  - Purple - Primary accent for assistant turns and selections
  - Cyan - Brand color for info, commands, and user highlights
  - Emerald - Success states and healthy backend indicator
  - Amber - Warnings and degraded backend indicator
  - Rose - Errors and critical warnings

## Turn Bubble Colors

Turn bubbles use semantic color tokens:

	UserBubbleFg      - Text color for user turns
	AssistantBubbleFg - Text color for assistant turns
	ErrorBubbleFg     - Text color for error turns

## Text Colors

Hierarchical text color system:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}
	if theme.HasTrueColor {
		// Terminal supports 16M colors
	}

# Status Indicators

ASCII indicators accompany colors for colorblind accessibility:

	StatusIndicators.Success - [OK]
	StatusIndicators.Error   - [X]
	StatusIndicators.Warning - [!]

# Usage Example

	import "github.com/jharlan/pymolchat/internal/ui/styles"

	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)

	theme := styles.NewTheme()
	bar := theme.StatusBar.Render("Ready")
*/
package styles
