package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewDetails() string {
	p, ok := m.Selected()
	if !ok {
		return "No Item Selected"
	}

	header := detailsHeaderStyle.Render(fmt.Sprintf("%s : %s", p.Action, p.Resource))

	cond := "none"
	if len(p.Condition) > 0 {
		cond = p.Condition.Key()
	}
	owners := "none"
	if len(p.AssociatedResources) > 0 {
		owners = strings.Join(p.AssociatedResources, ", ")
	}

	intel := lipgloss.JoinVertical(lipgloss.Left,
		severityStyle(p.Severity).Bold(true).Render(fmt.Sprintf("SEVERITY:   %s", p.Severity)),
		special.Render(fmt.Sprintf("FREQUENCY:  %d", p.Frequency)),
		warning.Render("CONDITION:  "+cond),
		subtle.Render("RESOURCES:  "+owners),
	)

	var reasons []string
	for _, r := range strings.Split(p.Reasoning, "; ") {
		reasons = append(reasons, "• "+r)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		intel,
		"",
		highlight.Render("EVIDENCE:"),
		dimStyle.Render(strings.Join(reasons, "\n")),
		"",
		strings.Repeat("─", 50),
		"[B]ack to List",
	)

	return detailsBoxStyle.Render(content)
}
