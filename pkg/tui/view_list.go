package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewList() string {
	s := strings.Builder{}

	if len(m.items) == 0 {
		return "\n\n   " + iconSafe.Render() + subtle.Render("  No denials found. Nothing to grant.")
	}

	start, end := m.calculateWindow(len(m.items))

	headerTxt := fmt.Sprintf("  %-9s | %-32s | %5s | %s", "SEVERITY", "ACTION", "FREQ", "RESOURCE")
	s.WriteString(dimStyle.Render(headerTxt) + "\n")
	s.WriteString(warning.Render(fmt.Sprintf("   [SORT: %s]", m.SortMode)) + "\n")

	for i := start; i < end; i++ {
		p := m.items[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		resource := p.Resource
		if len(resource) > 60 {
			resource = resource[:57] + "..."
		}
		line := severityStyle(p.Severity).Render(
			fmt.Sprintf("%-9s | %-32s | %5d | %s", p.Severity, truncate(p.Action, 32), p.Frequency, resource))

		if i == m.cursor {
			s.WriteString(listSelectedStyle.Render(cursor+line) + "\n")
		} else {
			s.WriteString(listNormalStyle.Render(cursor+line) + "\n")
		}
	}

	return s.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func (m Model) calculateWindow(total int) (int, int) {
	windowSize := m.height - 8 // approx HUD + footer
	if windowSize < 5 {
		windowSize = 5
	}

	start := m.cursor - (windowSize / 2)
	if start < 0 {
		start = 0
	}

	end := start + windowSize
	if end > total {
		end = total
		start = end - windowSize
		if start < 0 {
			start = 0
		}
	}
	return start, end
}
