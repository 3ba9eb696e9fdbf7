package ui

import (
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders backend output for the terminal. On renderer
// failure the raw text is returned unchanged; display problems never
// block a quest.
func RenderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return out
}
