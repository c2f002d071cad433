package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Select):
			if m.state == ViewStateList && len(m.items) > 0 {
				m.state = ViewStateDetail
			} else {
				m.state = ViewStateList
			}
		case key.Matches(msg, keys.Back):
			m.state = ViewStateList
		case key.Matches(msg, keys.Sort):
			m.SortMode = m.SortMode.next()
			m.refreshData()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(m.viewHUD())
	s.WriteString("\n")
	if m.state == ViewStateDetail {
		s.WriteString(m.viewDetails())
	} else {
		s.WriteString(m.viewList())
	}
	s.WriteString("\n  ")
	s.WriteString(m.help.View(keys))
	return s.String()
}
