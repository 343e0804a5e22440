// pymolchat - natural-language PyMOL scripting from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jharlan/pymolchat/internal/config"
	"github.com/jharlan/pymolchat/internal/gateway"
	"github.com/jharlan/pymolchat/internal/ui/chat"
	"github.com/jharlan/pymolchat/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app adapts the chat component to the tea.Model interface the program
// root requires.
type app struct {
	chat chat.Model
}

func (a app) Init() tea.Cmd {
	return a.chat.Init()
}

func (a app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a app) View() string {
	return a.chat.View()
}

func main() {
	var (
		serverURL   = flag.String("server", "", "backend server URL (overrides config)")
		configPath  = flag.String("config", "", "path to config file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("pymolchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	// The TUI owns the terminal, so the standard logger must not write
	// to it. Debug runs get a log file; normal runs discard.
	if os.Getenv("PYMOLCHAT_DEBUG") != "" {
		f, err := tea.LogToFile("pymolchat-debug.log", "debug")
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	baseURL := cfg.Backend.URL
	if *serverURL != "" {
		baseURL = *serverURL
	}

	client := gateway.NewClientWithConfig(gateway.ClientConfig{
		BaseURL:   baseURL,
		Timeout:   time.Duration(cfg.Backend.TimeoutSecs) * time.Second,
		AuthToken: cfg.Backend.AuthToken,
	})

	m := chat.New(client, styles.NewTheme(), Version)
	m.SetExportFormat(cfg.UI.ExportFormat)

	p := tea.NewProgram(
		app{chat: m},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads from an explicit path when given, otherwise from the
// standard locations. A missing config file is not an error; defaults
// apply.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
