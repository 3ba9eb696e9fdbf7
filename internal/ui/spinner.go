package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type doneMsg struct{}

type spinnerModel struct {
	spinner spinner.Model
	message string
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m spinnerModel) View() string {
	return fmt.Sprintf("\r%s %s", m.spinner.View(), m.message)
}

// Spin shows a spinner with the given message while fn runs, then returns
// fn's result. With a nil TTY bubbletea falls back to plain output, so it
// is safe in pipes.
func Spin[T any](message string, fn func() (T, error)) (T, error) {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	program := tea.NewProgram(spinnerModel{spinner: s, message: message})

	type outcome struct {
		value T
		err   error
	}
	resultChan := make(chan outcome, 1)
	go func() {
		value, err := fn()
		resultChan <- outcome{value, err}
		program.Send(doneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		// The work still finishes; only the display failed.
		res := <-resultChan
		return res.value, res.err
	}
	res := <-resultChan
	return res.value, res.err
}
