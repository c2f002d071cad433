package tui

import (
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewHUD() string {
	counts := m.Result.CountBySeverity()

	title := "LEASTPRIV"
	if m.Stack != "" {
		title += " " + m.Stack
	}
	if m.Region != "" {
		title += " (" + m.Region + ")"
	}
	left := highlight.Render(title)

	var segs []string
	for _, sev := range aggregate.Severities {
		segs = append(segs, hudLabelStyle.Render(sev.String()+":")+severityStyle(sev).Bold(true).Render(fmt.Sprint(counts[sev])))
	}
	failed := len(m.Result.FailedSources)
	failStyle := special
	if failed > 0 {
		failStyle = danger
	}
	segs = append(segs, hudLabelStyle.Render("FAILED:")+failStyle.Render(fmt.Sprint(failed)))

	right := lipgloss.JoinHorizontal(lipgloss.Center, joinWith(segs, "  ")...)

	width := m.width - 4
	spacer := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacer < 1 {
		spacer = 1
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		lipgloss.NewStyle().Width(spacer).Render(""),
		right,
	)
	return hudStyle.Render(content)
}

func joinWith(items []string, sep string) []string {
	out := make([]string, 0, 2*len(items))
	for i, it := range items {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, it)
	}
	return out
}
