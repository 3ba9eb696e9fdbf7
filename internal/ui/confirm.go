// Package ui provides the interactive pieces of the CLI: the permission
// confirmation prompt, a progress spinner, and markdown rendering of
// backend output.
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	resourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// confirmModel is a one-shot y/n prompt.
type confirmModel struct {
	tool     string
	resource string
	approved bool
	answered bool
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y", "enter":
		m.approved = true
		m.answered = true
		return m, tea.Quit
	case "n", "N", "esc", "ctrl+c", "q":
		m.approved = false
		m.answered = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}
	return fmt.Sprintf("%s %s\n%s\n",
		promptStyle.Render(fmt.Sprintf("Allow %s on", m.tool)),
		resourceStyle.Render(m.resource+"?"),
		hintStyle.Render("[y] allow  [n] deny"))
}

// Confirmer asks the user to approve a tool call on a resource. It
// satisfies the permission engine's confirmation interface.
type Confirmer struct{}

func (Confirmer) Confirm(tool, resource string) (bool, error) {
	program := tea.NewProgram(confirmModel{tool: tool, resource: resource})
	final, err := program.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(confirmModel)
	if !ok {
		return false, fmt.Errorf("confirmation prompt returned unexpected model")
	}
	return m.approved, nil
}
