package tui

import (
	"strings"
	"testing"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
	tea "github.com/charmbracelet/bubbletea"
)

func sample() *analysis.Result {
	return &analysis.Result{Permissions: []aggregate.SuggestedPermission{
		{Action: "sqs:sendmessage", Resource: "arn:aws:sqs:us-east-1:1:q", Frequency: 9, Severity: aggregate.Low, Reasoning: "AccessDenied in q"},
		{
			Action:              "dynamodb:deleteitem",
			Resource:            "arn:aws:dynamodb:us-east-1:1:table/Orders",
			Frequency:           1,
			Severity:            aggregate.Critical,
			Condition:           conditions.Condition{"Bool": {"aws:MultiFactorAuthPresent": "true"}},
			Reasoning:           "AccessDenied for role in /aws/lambda/a; AccessDenied for role in /aws/lambda/b",
			AssociatedResources: []string{"OrdersFunction"},
		},
		{Action: "kms:decrypt", Resource: "Unknown", Frequency: 3, Severity: aggregate.High, Reasoning: "AccessDenied in k"},
	}}
}

func press(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func actions(m Model) []string {
	var out []string
	for _, p := range m.items {
		out = append(out, p.Action)
	}
	return out
}

func TestTUI_SortCycle(t *testing.T) {
	m := NewModel(sample(), "orders", "us-east-1")

	tests := []struct {
		mode SortMode
		want string
	}{
		{SortSeverity, "dynamodb:deleteitem,kms:decrypt,sqs:sendmessage"},
		{SortFrequency, "sqs:sendmessage,kms:decrypt,dynamodb:deleteitem"},
		{SortAction, "dynamodb:deleteitem,kms:decrypt,sqs:sendmessage"},
		{SortSeverity, "dynamodb:deleteitem,kms:decrypt,sqs:sendmessage"},
	}
	for i, tc := range tests {
		if i > 0 {
			m = press(m, "s")
		}
		if m.SortMode != tc.mode {
			t.Fatalf("step %d: sort mode = %s, want %s", i, m.SortMode, tc.mode)
		}
		if got := strings.Join(actions(m), ","); got != tc.want {
			t.Errorf("step %d (%s): order = %s, want %s", i, tc.mode, got, tc.want)
		}
		if !strings.Contains(m.View(), "[SORT: "+tc.mode.String()+"]") {
			t.Errorf("step %d: view missing sort indicator", i)
		}
	}
}

func TestTUI_DetailView(t *testing.T) {
	m := NewModel(sample(), "orders", "us-east-1")
	m = press(m, "enter")

	view := m.View()
	for _, w := range []string{"dynamodb:deleteitem", "aws:MultiFactorAuthPresent", "OrdersFunction", "/aws/lambda/b"} {
		if !strings.Contains(view, w) {
			t.Errorf("expected detail view to contain %q.\nGot:\n%s", w, view)
		}
	}

	m = press(m, "b")
	if m.state != ViewStateList {
		t.Fatalf("expected list view after back, got %v", m.state)
	}
}

func TestTUI_CursorClamped(t *testing.T) {
	m := NewModel(sample(), "", "")
	for i := 0; i < 10; i++ {
		m = press(m, "down")
	}
	p, ok := m.Selected()
	if !ok || p.Action != "sqs:sendmessage" {
		t.Fatalf("expected cursor on last item, got %+v", p)
	}
}

func TestTUI_Quit(t *testing.T) {
	m := NewModel(sample(), "", "")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
	if updated.(Model).View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestTUI_EmptyResult(t *testing.T) {
	m := NewModel(&analysis.Result{}, "", "")
	m = press(m, "enter")
	if m.state != ViewStateList {
		t.Fatal("detail view should not open without suggestions")
	}
	if !strings.Contains(m.View(), "No denials found") {
		t.Errorf("expected clean message, got:\n%s", m.View())
	}
}
