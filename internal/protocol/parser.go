// Package protocol extracts structured tool calls from free-form generated
// text. Parsing is a pure function of its inputs and never fails: text
// with no recognizable calls simply yields none.
package protocol

import (
	"regexp"
	"strings"
)

// Call is one tool invocation parsed out of generated text.
type Call struct {
	Name string
	// Args preserves the order arguments appeared in the source text.
	Args map[string]string
	// ArgOrder lists the argument keys in appearance order.
	ArgOrder []string
	// Raw is the full matched text span.
	Raw string
	// Line is the 1-based line number of the match start.
	Line int
}

// Three surface grammars, tried in priority order over the same text:
// an explicit "Tool: name(...)" form, a shell-prompt "$ name(...)" form,
// and a bare form restricted to well-known names to limit false positives.
var callPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Tool:\s*(\w+)\s*\(\s*((?:[^()]*|\([^()]*\))*)\s*\)`),
	regexp.MustCompile(`\$\s*(\w+)\s*\(\s*((?:[^()]*|\([^()]*\))*)\s*\)`),
	regexp.MustCompile(`\b(read|write|grep|find|shell|localexec|webfetch|patch)\s*\(\s*((?:[^()]*|\([^()]*\))*)\s*\)`),
}

// key=value with double-quoted, single-quoted, or bare values. Bare values
// end at a comma, whitespace, or closing paren.
var argPattern = regexp.MustCompile(`(\w+)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^,\s)]+))`)

var unescaper = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\'`, "'")

// Parse extracts tool calls from text, in grammar-priority then
// left-to-right order. Candidates whose name is not in known are silently
// discarded; their span is still claimed so a lower-priority grammar does
// not resurrect them.
func Parse(text string, known map[string]struct{}) []Call {
	var calls []Call
	type span struct{ start, end int }
	var claimed []span

	overlaps := func(start int) bool {
		for _, s := range claimed {
			if start >= s.start && start < s.end {
				return true
			}
		}
		return false
	}

	for _, pattern := range callPatterns {
		for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if overlaps(start) {
				continue
			}
			claimed = append(claimed, span{start, end})

			name := text[m[2]:m[3]]
			if _, ok := known[name]; !ok {
				continue
			}

			argsText := ""
			if m[4] >= 0 {
				argsText = text[m[4]:m[5]]
			}
			args, order := parseArgs(argsText)

			calls = append(calls, Call{
				Name:     name,
				Args:     args,
				ArgOrder: order,
				Raw:      text[start:end],
				Line:     strings.Count(text[:start], "\n") + 1,
			})
		}
	}

	return calls
}

// parseArgs extracts key=value pairs from the argument text of a call.
func parseArgs(argsText string) (map[string]string, []string) {
	args := make(map[string]string)
	var order []string

	for _, m := range argPattern.FindAllStringSubmatch(argsText, -1) {
		key := m[1]
		value := m[2]
		if value == "" && m[3] != "" {
			value = m[3]
		}
		if value == "" && m[4] != "" {
			value = m[4]
		}
		value = unescaper.Replace(value)

		if _, seen := args[key]; !seen {
			order = append(order, key)
		}
		args[key] = value
	}

	return args, order
}
