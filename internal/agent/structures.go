// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// STRUCTURE REGISTRY
// =============================================================================

// Structure records a molecular structure the session has loaded, so
// later requests can refer to it by name.
type Structure struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"` // PDB id or file path
	Description string    `json:"description"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// LoadStructure registers a structure and returns the PyMOL commands
// that load it. Exactly one of pdbID and filePath must be set; name
// defaults to the PDB id or the file stem.
func (a *Agent) LoadStructure(pdbID, filePath, name string) ([]string, error) {
	pdbID = strings.TrimSpace(pdbID)
	filePath = strings.TrimSpace(filePath)

	if (pdbID == "") == (filePath == "") {
		return nil, fmt.Errorf("exactly one of pdb id or file path is required")
	}

	var commands []string
	var source string
	switch {
	case pdbID != "":
		source = pdbID
		if name == "" {
			name = strings.ToLower(pdbID)
		}
		commands = append(commands, fmt.Sprintf("fetch %s", pdbID))
	default:
		source = filePath
		if name == "" {
			name = fileStem(filePath)
		}
		commands = append(commands, fmt.Sprintf("load %s", filePath))
	}

	if name != strings.ToLower(source) && name != fileStem(source) {
		commands = append(commands, fmt.Sprintf("set_name %s, %s", loadedObjectName(source), name))
	}

	a.mu.Lock()
	a.structures[name] = Structure{
		Name:        name,
		Source:      source,
		Description: fmt.Sprintf("structure loaded from %s", source),
		LoadedAt:    time.Now(),
	}
	a.mu.Unlock()

	return commands, nil
}

// Structures returns the registered structures sorted by name.
func (a *Agent) Structures() []Structure {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sortedStructuresLocked()
}

// sortedStructuresLocked returns structures in name order.
// Caller must hold a.mu.
func (a *Agent) sortedStructuresLocked() []Structure {
	out := make([]Structure, 0, len(a.structures))
	for _, s := range a.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// loadedObjectName is the object name PyMOL assigns on fetch/load.
func loadedObjectName(source string) string {
	return strings.ToLower(fileStem(source))
}

// fileStem returns the path's base name without extension.
func fileStem(path string) string {
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
