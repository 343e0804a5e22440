// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pymol

import (
	"fmt"
	"strings"
	"time"

	"github.com/jharlan/pymolchat/internal/util"
)

// =============================================================================
// SCRIPT WRITING
// =============================================================================

// WriteScript writes commands to a .pml script file, one command per
// line, using an atomic write so a crash never leaves a half-written
// script behind.
func WriteScript(path string, commands []string) error {
	var b strings.Builder
	for _, cmd := range commands {
		b.WriteString(strings.TrimRight(cmd, " \t"))
		b.WriteByte('\n')
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write script: %w", err)
	}
	return nil
}

// BuildPythonScript wraps commands in a standalone Python script that
// drives PyMOL headlessly. Commands already using the cmd. API are kept
// as-is; plain commands are routed through cmd.do.
func BuildPythonScript(request string, commands []string) string {
	var b strings.Builder

	b.WriteString("#!/usr/bin/env python\n")
	b.WriteString("# PyMOL visualization script\n")
	fmt.Fprintf(&b, "# Generated on %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "# Request: %s\n\n", request)
	b.WriteString("import pymol\n")
	b.WriteString("from pymol import cmd\n\n")
	b.WriteString("pymol.finish_launching(['pymol', '-c'])\n\n")

	for _, c := range commands {
		if strings.HasPrefix(c, "cmd.") {
			b.WriteString(c)
		} else {
			fmt.Fprintf(&b, "cmd.do(%q)", c)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nprint(\"Visualization script completed successfully!\")\n")
	return b.String()
}
