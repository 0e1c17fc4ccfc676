package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cadenza/internal/intent"
)

// ============================================================================
// STYLES
// ============================================================================

// Color palette for the cadenza CLI.
var (
	colorPrimary = lipgloss.Color("#7C6FCF") // violet
	colorAccent  = lipgloss.Color("#8BC34A") // lime green
	colorWarn    = lipgloss.Color("#FFC107") // yellow
	colorError   = lipgloss.Color("#E53935") // red
	colorMuted   = lipgloss.Color("244")
)

// Styles holds the styled components shared by the render paths.
type Styles struct {
	Title    lipgloss.Style
	Section  lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Question lipgloss.Style
	Card     lipgloss.Style
}

// NewStyles creates the CLI style set.
func NewStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true),

		Section: lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			MarginTop(1),

		Label: lipgloss.NewStyle().
			Foreground(colorMuted),

		Value: lipgloss.NewStyle(),

		Muted: lipgloss.NewStyle().
			Foreground(colorMuted),

		Success: lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(colorWarn).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true),

		Question: lipgloss.NewStyle().
			Foreground(colorWarn).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWarn),

		Card: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted),
	}
}

// ============================================================================
// CLARIFICATION PICKER
// ============================================================================

// optionItem adapts intent.HoleOption to list.Item.
type optionItem struct {
	opt intent.HoleOption
}

func (i optionItem) Title() string { return i.opt.Label }
func (i optionItem) Description() string {
	if i.opt.Description != "" {
		return fmt.Sprintf("%s (%.0f%%)", i.opt.Description, i.opt.Score*100)
	}
	return fmt.Sprintf("plausibility %.0f%%", i.opt.Score*100)
}
func (i optionItem) FilterValue() string { return i.opt.Label + " " + i.opt.Description }

// clarifyModel presents one hole's options and records the selection.
type clarifyModel struct {
	hole   intent.Hole
	list   list.Model
	styles Styles

	choice string
	done   bool
}

func newClarifyModel(hole intent.Hole) clarifyModel {
	items := make([]list.Item, len(hole.Options))
	for i, opt := range hole.Options {
		items[i] = optionItem{opt: opt}
	}

	l := list.New(items, list.NewDefaultDelegate(), 64, len(items)*3+6)
	l.Title = hole.Question
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(colorWarn)

	if hole.DefaultOption >= 0 && hole.DefaultOption < len(hole.Options) {
		l.Select(hole.DefaultOption)
	}

	return clarifyModel{
		hole:   hole,
		list:   l,
		styles: NewStyles(),
	}
}

func (m clarifyModel) Init() tea.Cmd {
	return nil
}

func (m clarifyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if sel, ok := m.list.SelectedItem().(optionItem); ok {
				m.choice = sel.opt.ID
			}
			m.done = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m clarifyModel) View() string {
	if m.done {
		return ""
	}
	hint := m.styles.Muted.Render("[enter] choose  [esc] skip")
	return "\n" + m.list.View() + "\n" + hint + "\n"
}

// runClarify presents the hole interactively and returns the chosen option
// id, or "" if the user skipped.
func runClarify(hole intent.Hole) (string, error) {
	if len(hole.Options) == 0 {
		return "", nil
	}

	p := tea.NewProgram(newClarifyModel(hole))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("clarification prompt failed: %w", err)
	}
	if m, ok := final.(clarifyModel); ok {
		return m.choice, nil
	}
	return "", nil
}
