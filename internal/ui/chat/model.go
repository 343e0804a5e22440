// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jharlan/pymolchat/internal/gateway"
	"github.com/jharlan/pymolchat/internal/model"
	"github.com/jharlan/pymolchat/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// copiedIndicatorDuration is how long the "Copied" indication stays
	// on the command block before reverting.
	copiedIndicatorDuration = 2 * time.Second

	// noteDuration is how long transient status bar notes stay visible.
	noteDuration = 4 * time.Second

	// maxInputHeight bounds the growth of the multi-line input control.
	maxInputHeight = 5

	// inputCharLimit caps a single message. Matches the server's message
	// length limit so oversize input fails locally, not after a round trip.
	inputCharLimit = 10000
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
//
// The session state machine lives here: idle --send--> busy, busy
// --success--> idle, busy --failure--> error. While busy, new sends are
// rejected; the next send after an error starts a fresh cycle.
type Model struct {
	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool

	// Conversation
	transcript *model.Transcript
	status     model.SessionStatus

	// Backend gateway
	client *gateway.Client

	// Backend health (unknown until the first probe settles)
	backendKnown   bool
	backendHealthy bool

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	// Markdown rendering for assistant explanations
	mdRenderer *glamour.TermRenderer

	// Key bindings
	keyMap KeyMap

	// Transient copy indicator: the turn whose command block shows
	// "Copied" right now, empty when none.
	copiedTurnID string

	// Transient status bar note
	note string

	// Export format for C-e, one of "markdown", "html", "json".
	exportFormat string

	// Metadata
	version string
}

// New creates a new chat model.
func New(client *gateway.Client, theme *styles.Theme, version string) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe what you want PyMOL to do..."
	ta.Prompt = "> "
	ta.CharLimit = inputCharLimit
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	// Enter submits; Alt+Enter inserts the newline explicitly.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	return Model{
		theme:      theme,
		transcript: model.NewTranscript(),
		status:     model.StatusIdle,
		client:     client,
		viewport:   vp,
		input:      ta,
		spinner:    sp,
		keyMap:     DefaultKeyMap(),
		version:    version,
	}
}

// Init starts the non-blocking backend health probe. A backend that is
// down shows a status warning; it never blocks the UI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		CheckHealthCmd(m.client),
	)
}

// Transcript returns the transcript for inspection.
func (m *Model) Transcript() *model.Transcript {
	return m.transcript
}

// Status returns the current session status.
func (m *Model) Status() model.SessionStatus {
	return m.status
}

// SetExportFormat selects the transcript export format. An empty format
// keeps the Markdown default.
func (m *Model) SetExportFormat(format string) {
	if format == "" {
		format = "markdown"
	}
	m.exportFormat = format
}

// =============================================================================
// SEND / CLEAR ACTIONS
// =============================================================================

// sendMessage dispatches the current input to the backend.
//
// Empty or whitespace-only input is a no-op, as is sending while a
// request is already in flight. The user turn is appended optimistically
// before the network call so the input feels instant.
func (m *Model) sendMessage() tea.Cmd {
	if !m.status.CanSend() {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}

	m.transcript.AddUserTurn(text)
	m.input.Reset()
	m.input.SetHeight(1)
	m.input.Focus()
	m.status = model.StatusBusy
	m.refreshViewport(true)

	return tea.Batch(
		m.spinner.Tick,
		SendChatCmd(m.client, text),
	)
}

// clearChat asks the backend to drop its history. The visible transcript
// is only cleared when the backend confirms; a failed clear leaves it
// untouched so the display never disagrees with the server.
func (m *Model) clearChat() tea.Cmd {
	return ClearHistoryCmd(m.client)
}

// copyLastCommands copies the command block of the most recent assistant
// turn, if it has one.
func (m *Model) copyLastCommands() tea.Cmd {
	turn := m.transcript.LastAssistantTurn()
	if turn == nil || !turn.HasCommands() {
		return nil
	}
	return CopyCommandsCmd(turn)
}

// saveScript writes the most recent assistant turn's commands to a .pml
// file. A no-op when there is nothing to save, like copyLastCommands.
func (m *Model) saveScript() tea.Cmd {
	turn := m.transcript.LastAssistantTurn()
	if turn == nil || !turn.HasCommands() {
		return nil
	}
	return SaveScriptCmd(turn)
}

// =============================================================================
// SIZING
// =============================================================================

// SetSize resizes the chat layout.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	inputHeight := m.input.Height() + 2 // border
	statusHeight := 1
	headerHeight := 3

	vpHeight := height - inputHeight - statusHeight - headerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.SetWidth(width - 4)

	// Re-create the markdown renderer at the new wrap width.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(contentWidth(width)),
	)
	if err == nil {
		m.mdRenderer = renderer
	}

	m.ready = true
	m.refreshViewport(false)
}

// growInput adjusts the input height to its content, bounded.
func (m *Model) growInput() {
	h := m.input.LineCount()
	if h < 1 {
		h = 1
	}
	if h > maxInputHeight {
		h = maxInputHeight
	}
	if h != m.input.Height() {
		m.input.SetHeight(h)
		m.SetSize(m.width, m.height)
	}
}
