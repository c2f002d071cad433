// Package tui is an interactive browser for analysis results.
package tui

import (
	"sort"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
)

type ViewState int

const (
	ViewStateList ViewState = iota
	ViewStateDetail
)

// SortMode orders the suggestion list.
type SortMode int

const (
	SortSeverity SortMode = iota
	SortFrequency
	SortAction
)

var sortModeNames = [...]string{"severity", "frequency", "action"}

func (s SortMode) String() string { return sortModeNames[s] }

func (s SortMode) next() SortMode { return (s + 1) % SortMode(len(sortModeNames)) }

type Model struct {
	Result *analysis.Result
	Stack  string
	Region string

	// state
	state    ViewState
	quitting bool
	width    int
	height   int

	// data
	items    []aggregate.SuggestedPermission
	SortMode SortMode

	// navigation
	cursor int
	help   help.Model
}

func NewModel(res *analysis.Result, stack, region string) Model {
	m := Model{
		Result: res,
		Stack:  stack,
		Region: region,
		state:  ViewStateList,
		width:  100,
		height: 30,
		help:   help.New(),
	}
	m.refreshData()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// refreshData copies the suggestions in the current sort order.
func (m *Model) refreshData() {
	m.items = append([]aggregate.SuggestedPermission(nil), m.Result.Permissions...)

	less := func(a, b aggregate.SuggestedPermission) bool {
		switch m.SortMode {
		case SortFrequency:
			if a.Frequency != b.Frequency {
				return a.Frequency > b.Frequency
			}
			if a.Severity != b.Severity {
				return a.Severity > b.Severity
			}
		case SortAction:
			if a.Action != b.Action {
				return a.Action < b.Action
			}
			return a.Resource < b.Resource
		default:
			if a.Severity != b.Severity {
				return a.Severity > b.Severity
			}
			if a.Frequency != b.Frequency {
				return a.Frequency > b.Frequency
			}
		}
		return a.Action < b.Action
	}
	sort.SliceStable(m.items, func(i, j int) bool { return less(m.items[i], m.items[j]) })

	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the suggestion under the cursor.
func (m Model) Selected() (aggregate.SuggestedPermission, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return aggregate.SuggestedPermission{}, false
	}
	return m.items[m.cursor], true
}

// Run blocks until the user quits.
func Run(res *analysis.Result, stack, region string) error {
	_, err := tea.NewProgram(NewModel(res, stack, region), tea.WithAltScreen()).Run()
	return err
}
