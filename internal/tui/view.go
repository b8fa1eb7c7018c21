// ABOUTME: Rendering for the operator console: list pane, detail pane, status bar.
// ABOUTME: Reads reconciler state; never mutates it.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const listPaneWidth = 34

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	userStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	operatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	listPaneStyle = lipgloss.NewStyle().
			Width(listPaneWidth).
			Border(lipgloss.NormalBorder(), false, true, false, false).
			PaddingRight(1)
)

func (m Model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewList(), m.viewDetail())
	return body + "\n" + m.viewStatusBar()
}

func (m Model) viewList() string {
	var b strings.Builder

	if m.focus == focusSearch {
		b.WriteString(m.search.View() + "\n\n")
	} else if q := m.list.Query(); q != "" {
		b.WriteString(dimStyle.Render("filter: "+q) + "\n\n")
	} else {
		b.WriteString(titleStyle.Render("Conversations") + "\n\n")
	}

	chats := m.list.Chats()
	if len(chats) == 0 {
		b.WriteString(dimStyle.Render("no conversations"))
	}
	for i, c := range chats {
		name := c.SenderName
		if name == "" {
			name = c.Sender
		}
		line := truncate(name, listPaneWidth-8)
		if c.UnansweredCount != nil {
			line += " " + badgeStyle.Render(fmt.Sprintf("(%d)", *c.UnansweredCount))
		}
		if !c.BotEnabledOrDefault() {
			line += " " + warnStyle.Render("[human]")
		}
		if i == m.cursor {
			line = selectedStyle.Render("› " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
		b.WriteString("  " + dimStyle.Render(truncate(c.LastMessage, listPaneWidth-4)) + "\n")
	}

	return listPaneStyle.Render(b.String())
}

func (m Model) viewDetail() string {
	var b strings.Builder

	id := m.detail.ID()
	if id == "" {
		return "\n  " + dimStyle.Render("select a conversation (enter)")
	}

	chat := m.detail.Chat()
	header := chat.SenderName
	if header == "" {
		header = chat.Sender
	}
	b.WriteString("  " + titleStyle.Render(header))
	if !m.detail.BotEnabled() {
		b.WriteString("  " + warnStyle.Render("[bot off, human has the wheel]"))
	}
	if n := m.detail.Unanswered(); n > 0 {
		b.WriteString("  " + badgeStyle.Render(fmt.Sprintf("%d unanswered", n)))
	}
	b.WriteString("\n\n")

	if m.detail.Loading() {
		b.WriteString("  " + m.spin.View() + dimStyle.Render("loading") + "\n")
		return b.String()
	}
	if err := m.detail.Err(); err != nil {
		b.WriteString("  " + errorStyle.Render(err.Error()) + "\n\n")
	}

	for _, msg := range m.detail.Messages() {
		prefix := operatorStyle.Render("←")
		if msg.IsFromUser {
			prefix = userStyle.Render("→")
		}
		b.WriteString("  " + prefix + " " + msg.Content + "\n")
	}

	b.WriteString("\n  ")
	if m.focus == focusComposer {
		b.WriteString(m.composer.View())
	} else {
		b.WriteString(dimStyle.Render("press i to reply, b to toggle bot"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewStatusBar() string {
	var parts []string
	if m.list.Reconnecting() {
		parts = append(parts, warnStyle.Render(m.spin.View()+"reconnecting, live updates paused"))
	}
	if err := m.list.Err(); err != nil {
		parts = append(parts, errorStyle.Render("poll: "+err.Error()))
	}
	if m.notice != "" {
		parts = append(parts, errorStyle.Render(m.notice))
	}
	if len(parts) == 0 {
		parts = append(parts, dimStyle.Render("↑/↓ navigate · enter open · / search · q quit"))
	}
	return " " + strings.Join(parts, "  ")
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
// Counting runes rather than bytes keeps multibyte sender names intact.
func truncate(s string, maxLen int) string {
	if maxLen < 4 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
