// Package planner turns a free-form plan response into an ordered step
// list and renders plan progress for the next-action prompt.
package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Step is one entry of a parsed plan.
type Step struct {
	Number      int    `json:"number"`
	Description string `json:"description"`
	Tool        string `json:"tool,omitempty"`
	Completed   bool   `json:"completed"`
	Result      string `json:"result,omitempty"`
}

var (
	numberedLine = regexp.MustCompile(`^\s*(?:[Ss]tep\s*)?(\d+)[.):]\s*(.+)$`)
	bulletLine   = regexp.MustCompile(`^\s*[-*•]\s+(.+)$`)
	toolNote     = regexp.MustCompile(`Tool:\s*(\w+)`)
	toolSuffix   = regexp.MustCompile(`\s*-\s*Tool:.*$`)
)

// Parse extracts an ordered step list from a plan response. Four formats
// are tried in order (a JSON array, a numbered list, a bulleted list, and
// a last-resort line split); the first one yielding at least one step
// wins.
func Parse(response string) []Step {
	if steps := parseJSON(response); len(steps) > 0 {
		log.Debug("plan parsed", "format", "json", "steps", len(steps))
		return steps
	}
	if steps := parseNumbered(response); len(steps) > 0 {
		log.Debug("plan parsed", "format", "numbered", "steps", len(steps))
		return steps
	}
	if steps := parseBullets(response); len(steps) > 0 {
		log.Debug("plan parsed", "format", "bullets", "steps", len(steps))
		return steps
	}
	steps := parseLines(response)
	log.Debug("plan parsed", "format", "lines", "steps", len(steps))
	return steps
}

// parseJSON looks for a JSON array anywhere in the response. Items may be
// objects ({number, description, tool}) or bare strings.
func parseJSON(response string) []Step {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(response[start:end+1]), &items); err != nil {
		return nil
	}

	var steps []Step
	for i, item := range items {
		var obj struct {
			Number      int    `json:"number"`
			Description string `json:"description"`
			Step        string `json:"step"`
			Tool        string `json:"tool"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && (obj.Description != "" || obj.Step != "") {
			desc := obj.Description
			if desc == "" {
				desc = obj.Step
			}
			number := obj.Number
			if number == 0 {
				number = i + 1
			}
			steps = append(steps, Step{Number: number, Description: desc, Tool: obj.Tool})
			continue
		}
		var text string
		if err := json.Unmarshal(item, &text); err == nil && text != "" {
			steps = append(steps, Step{Number: i + 1, Description: text})
		}
	}
	return steps
}

// parseNumbered matches lines like "1. x", "2) y", "Step 3: z".
func parseNumbered(response string) []Step {
	var steps []Step
	for _, line := range strings.Split(response, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		steps = append(steps, Step{
			Number:      number,
			Description: cleanDescription(m[2]),
			Tool:        extractTool(m[2]),
		})
	}
	return steps
}

// parseBullets matches markdown bullets, skipping trivially short items.
func parseBullets(response string) []Step {
	var steps []Step
	for _, line := range strings.Split(response, "\n") {
		m := bulletLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := strings.TrimSpace(m[1])
		if len(desc) < 5 {
			continue
		}
		steps = append(steps, Step{
			Number:      len(steps) + 1,
			Description: cleanDescription(desc),
			Tool:        extractTool(desc),
		})
	}
	return steps
}

// parseLines is the fallback: any non-trivial line becomes a step, capped
// at 10 steps.
func parseLines(response string) []Step {
	var steps []Step
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= 10 {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") || strings.HasPrefix(line, "---") {
			continue
		}
		if len(line) > 200 {
			line = line[:200]
		}
		steps = append(steps, Step{Number: len(steps) + 1, Description: line})
		if len(steps) >= 10 {
			break
		}
	}
	return steps
}

func extractTool(desc string) string {
	if m := toolNote.FindStringSubmatch(desc); m != nil {
		return m[1]
	}
	return ""
}

func cleanDescription(desc string) string {
	return strings.TrimSpace(toolSuffix.ReplaceAllString(desc, ""))
}

// TrackProgress renders the plan with completion markers, highlighting the
// current step.
func TrackProgress(steps []Step, current int) string {
	var b strings.Builder
	for i, step := range steps {
		indicator := "○"
		suffix := ""
		switch {
		case step.Completed || i < current:
			indicator = "✓"
		case i == current:
			indicator = "⏳"
			suffix = " (current)"
		}
		fmt.Fprintf(&b, "  %s %d. %s%s\n", indicator, step.Number, step.Description, suffix)
	}
	return strings.TrimRight(b.String(), "\n")
}
