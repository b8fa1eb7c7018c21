// ABOUTME: bubbletea model for the operator console: messages, key handling, and command dispatch.
// ABOUTME: All state transitions happen in the console reconcilers; this layer is glue.

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sehatops/handoff/internal/backend"
	"github.com/sehatops/handoff/internal/console"
)

// Push events forwarded into the program via Program.Send.
type (
	// NewMessageMsg carries one pushed conversation update.
	NewMessageMsg struct{ Chat backend.Chat }
	// ChatsUpdateMsg carries an authoritative pushed list resync.
	ChatsUpdateMsg struct{ Chats []backend.Chat }
	// BotStatusMsg carries a pushed bot flag change.
	BotStatusMsg struct{ Change backend.BotStatusChange }
	// ConnectionMsg carries a push-channel connectivity transition.
	ConnectionMsg struct{ Connected bool }
)

// Internal fetch results; each carries the tag its reconciler checks.
type (
	listSnapshotMsg   console.ListSnapshot
	detailSnapshotMsg console.Snapshot
	botFlagMsg        console.BotFlag
	toggleResultMsg   console.ToggleResult
	pollTickMsg       time.Time
)

type focusArea int

const (
	focusList focusArea = iota
	focusSearch
	focusComposer
)

// Store combines the backend client surface the console needs.
type Store interface {
	console.ListStore
	console.ChatStore
	console.BotToggler
}

// Model hosts the list reconciler, detail reconciler, and hand-off
// controller behind a two-pane terminal layout.
type Model struct {
	list    *console.List
	detail  *console.Detail
	handoff *console.Handoff

	pollInterval time.Duration

	cursor   int
	focus    focusArea
	search   textinput.Model
	composer textinput.Model
	spin     spinner.Model
	width    int
	height   int
	notice   string
}

// New builds the console model around a backend store.
func New(store Store, pollInterval time.Duration) Model {
	search := textinput.New()
	search.Placeholder = "search conversations"
	search.Prompt = "/ "
	search.CharLimit = 0

	composer := textinput.New()
	composer.Placeholder = "Reply as operator"
	composer.Prompt = "> "
	composer.CharLimit = 0

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		list:         console.NewList(store, nil),
		detail:       console.NewDetail(store, nil),
		handoff:      console.NewHandoff(store, nil),
		pollInterval: pollInterval,
		search:       search,
		composer:     composer,
		spin:         s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchList(), m.pollTick(), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.composer.Width = maxInt(msg.Width-listPaneWidth-6, 20)
		m.search.Width = maxInt(listPaneWidth-4, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pollTickMsg:
		cmds := []tea.Cmd{m.fetchList(), m.pollTick()}
		if id := m.detail.ID(); id != "" {
			cmds = append(cmds, m.fetchDetail(id))
		}
		return m, tea.Batch(cmds...)

	case listSnapshotMsg:
		m.list.ApplySnapshot(console.ListSnapshot(msg))
		m.clampCursor()
		return m, nil

	case detailSnapshotMsg:
		m.detail.ApplySnapshot(console.Snapshot(msg))
		return m, nil

	case botFlagMsg:
		m.detail.ApplyBotFlag(console.BotFlag(msg))
		return m, nil

	case toggleResultMsg:
		if msg.Err != nil {
			// Roll the optimistic flip back everywhere it showed.
			revert := backend.BotStatusChange{ChatID: msg.ID, Enabled: !msg.Want}
			m.list.ApplyBotStatus(revert)
			m.detail.ApplyBotStatus(revert)
			m.notice = "bot toggle failed: " + msg.Err.Error()
		}
		return m, nil

	case NewMessageMsg:
		m.list.ApplyNewMessage(msg.Chat)
		m.detail.ApplyNewMessage(msg.Chat)
		return m, nil

	case ChatsUpdateMsg:
		m.list.ApplyChatsUpdate(msg.Chats)
		m.clampCursor()
		return m, nil

	case BotStatusMsg:
		m.list.ApplyBotStatus(msg.Change)
		m.detail.ApplyBotStatus(msg.Change)
		return m, nil

	case ConnectionMsg:
		if m.list.SetConnected(msg.Connected) {
			// Missed pushes are gone; poll everything once.
			cmds := []tea.Cmd{m.fetchList()}
			if id := m.detail.ID(); id != "" {
				cmds = append(cmds, m.fetchDetail(id))
			}
			return m, tea.Batch(cmds...)
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)
	if m.focus == focusSearch {
		m.search, cmd = m.search.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focus == focusComposer {
		m.composer, cmd = m.composer.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.focus {
	case focusSearch:
		switch msg.String() {
		case "esc":
			m.focus = focusList
			m.search.Blur()
			m.search.SetValue("")
			m.list.SetQuery("")
			return m, m.fetchList()
		case "enter":
			m.focus = focusList
			m.search.Blur()
			m.list.SetQuery(m.search.Value())
			return m, m.fetchList()
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd

	case focusComposer:
		switch msg.String() {
		case "esc":
			m.focus = focusList
			m.composer.Blur()
			return m, nil
		case "enter":
			text := m.composer.Value()
			id := m.detail.ID()
			if text == "" || id == "" {
				return m, nil
			}
			m.composer.SetValue("")
			return m, m.sendMessage(id, text)
		}
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.list.Chats())-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		chats := m.list.Chats()
		if m.cursor >= len(chats) {
			return m, nil
		}
		id := chats[m.cursor].ID
		m.notice = ""
		m.detail.Select(id)
		return m, tea.Batch(m.fetchDetail(id), m.fetchBotFlag(id))
	case "/":
		m.focus = focusSearch
		m.search.Focus()
		return m, nil
	case "i":
		if m.detail.ID() != "" {
			m.focus = focusComposer
			m.composer.Focus()
		}
		return m, nil
	case "b":
		id := m.detail.ID()
		if id == "" {
			return m, nil
		}
		m.notice = ""
		optimistic, persist := m.handoff.Toggle(id, m.detail.BotEnabled())
		flip := backend.BotStatusChange{ChatID: id, Enabled: optimistic}
		m.list.ApplyBotStatus(flip)
		m.detail.ApplyBotStatus(flip)
		return m, func() tea.Msg { return toggleResultMsg(persist(context.Background())) }
	}
	return m, nil
}

func (m Model) fetchList() tea.Cmd {
	query := m.list.Query()
	return func() tea.Msg {
		return listSnapshotMsg(m.list.Fetch(context.Background(), query))
	}
}

func (m Model) fetchDetail(id string) tea.Cmd {
	return func() tea.Msg {
		return detailSnapshotMsg(m.detail.FetchSnapshot(context.Background(), id))
	}
}

func (m Model) fetchBotFlag(id string) tea.Cmd {
	return func() tea.Msg {
		return botFlagMsg(m.detail.FetchBotFlag(context.Background(), id))
	}
}

func (m Model) sendMessage(id, text string) tea.Cmd {
	return func() tea.Msg {
		return detailSnapshotMsg(m.detail.Send(context.Background(), id, text))
	}
}

func (m Model) pollTick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(t time.Time) tea.Msg { return pollTickMsg(t) })
}

func (m *Model) clampCursor() {
	if n := len(m.list.Chats()); m.cursor >= n {
		m.cursor = maxInt(n-1, 0)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
