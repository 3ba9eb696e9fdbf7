// Package quest runs the orchestration loop: plan a task, iterate tool
// cycles against the backend, and terminate on completion, failure, or an
// exhausted turn budget.
package quest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/questor-cli/questor/internal/planner"
	"github.com/questor-cli/questor/internal/protocol"
	"github.com/questor-cli/questor/internal/provider"
	"github.com/questor-cli/questor/internal/registry"
	"github.com/questor-cli/questor/internal/session"
)

// State is the orchestrator's lifecycle phase.
type State string

const (
	StatePlanning  State = "PLANNING"
	StateIterating State = "ITERATING"
	StateComplete  State = "COMPLETE"
	StateFailed    State = "FAILED"
)

// completionPhrases end a quest when the backend responds without tool
// calls. Matching is a case-insensitive substring test.
var completionPhrases = []string{
	"task is complete",
	"task complete",
	"successfully completed",
	"all steps done",
	"finished",
	"all done",
	"quest complete",
}

// metaTool names the bookkeeping tool whose calls never count as
// substantive progress.
const metaTool = "todowrite"

const (
	stepOutputCap    = 500
	contextOutputCap = 200
)

// StepRecord captures one executed tool call.
type StepRecord struct {
	Iteration int    `json:"iteration"`
	Tool      string `json:"tool"`
	Resource  string `json:"resource,omitempty"`
	Success   bool   `json:"success"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the final account of a quest. It is owned by the Orchestrator
// until Run returns.
type Result struct {
	QuestID        string        `json:"quest_id"`
	Task           string        `json:"task"`
	State          State         `json:"state"`
	Success        bool          `json:"success"`
	Steps          []StepRecord  `json:"steps"`
	ToolsUsed      []string      `json:"tools_used"`
	FilesModified  []string      `json:"files_modified"`
	Iterations     int           `json:"iterations"`
	EffectiveTurns int           `json:"effective_turns"`
	Summary        string        `json:"summary,omitempty"`
	Error          string        `json:"error,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Options tunes a single orchestrator.
type Options struct {
	// MaxTurns bounds effective turns, those where at least one
	// substantive tool call ran.
	MaxTurns int
	// ContextTokenBudget is handed to session pruning before each
	// backend call.
	ContextTokenBudget int
	// SystemPrompt is prepended to every backend request. When empty a
	// default prompt describing the tool protocol is built from the
	// registry.
	SystemPrompt string
}

// Orchestrator drives one quest at a time. It is not safe for concurrent
// use; the design assumes one active quest per workspace.
type Orchestrator struct {
	backend  provider.Provider
	registry *registry.Registry
	session  *session.Manager
	opts     Options
}

// New creates an orchestrator over the given backend, registry, and
// session.
func New(backend provider.Provider, reg *registry.Registry, sess *session.Manager, opts Options) *Orchestrator {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 15
	}
	if opts.ContextTokenBudget <= 0 {
		opts.ContextTokenBudget = 100000
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = defaultSystemPrompt(reg)
	}
	return &Orchestrator{backend: backend, registry: reg, session: sess, opts: opts}
}

// iterationCeiling is the hard bound on raw loop cycles. Without it a
// backend that only thinks or only calls the meta-tool would never consume
// the effective-turn budget and the loop would not terminate.
func (o *Orchestrator) iterationCeiling() int {
	ceiling := 3 * o.opts.MaxTurns
	if ceiling < 10 {
		ceiling = 10
	}
	return ceiling
}

// Run executes a quest to termination. Errors from planning or iteration
// are recorded in the result, not returned; the only non-nil error paths
// are programmer mistakes, so the signature stays result-only.
func (o *Orchestrator) Run(ctx context.Context, task string) *Result {
	start := time.Now()
	questID := o.session.StartQuest(task)

	res := &Result{
		QuestID: questID,
		Task:    task,
		State:   StatePlanning,
	}
	defer func() {
		res.Duration = time.Since(start)
		o.session.EndQuest(res.Success)
	}()

	log.Info("quest started", "id", questID, "task", task)
	o.session.AddUser(task)

	steps, err := o.plan(ctx, task)
	if err != nil {
		o.fail(res, fmt.Errorf("planning: %w", err))
		return res
	}
	log.Info("plan ready", "steps", len(steps))

	res.State = StateIterating
	o.iterate(ctx, res, task, steps)
	return res
}

// plan asks the backend for a step list and parses it.
func (o *Orchestrator) plan(ctx context.Context, task string) ([]planner.Step, error) {
	prompt := fmt.Sprintf(
		"Create a short numbered plan for this task. One step per line.\n\nTask: %s", task)

	response, err := o.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	o.session.AddAssistant(response)
	return planner.Parse(response), nil
}

// iterate runs ITERATING cycles until a terminal state is reached.
func (o *Orchestrator) iterate(ctx context.Context, res *Result, task string, steps []planner.Step) {
	known := o.registry.Known()
	ceiling := o.iterationCeiling()

	var lastOutcomes []StepRecord
	toolsSeen := make(map[string]struct{})
	filesSeen := make(map[string]struct{})

	for res.EffectiveTurns < o.opts.MaxTurns {
		if res.Iterations >= ceiling {
			log.Warn("iteration ceiling reached", "iterations", res.Iterations)
			res.State = StateFailed
			res.Error = fmt.Sprintf("stopped after %d iterations without progress", res.Iterations)
			return
		}
		res.Iterations++

		prompt := o.buildContext(task, steps, res.EffectiveTurns, lastOutcomes)
		response, err := o.generate(ctx, prompt)
		if err != nil {
			o.fail(res, fmt.Errorf("iteration %d: %w", res.Iterations, err))
			return
		}
		o.session.AddAssistant(response)

		calls := protocol.Parse(response, known)
		if len(calls) == 0 {
			if phrase, ok := completionPhrase(response); ok {
				log.Info("quest complete", "phrase", phrase, "iterations", res.Iterations)
				res.State = StateComplete
				res.Success = true
				res.Summary = response
				return
			}
			// Thinking cycle: no calls, no completion. Does not consume
			// the effective-turn budget.
			lastOutcomes = nil
			continue
		}

		substantive := false
		lastOutcomes = lastOutcomes[:0]
		for _, call := range calls {
			record := o.executeCall(ctx, res, call)
			lastOutcomes = append(lastOutcomes, record)

			if call.Name != metaTool {
				substantive = true
			}
			if _, seen := toolsSeen[call.Name]; !seen {
				toolsSeen[call.Name] = struct{}{}
				res.ToolsUsed = append(res.ToolsUsed, call.Name)
			}
			if path := modifiedPath(call); path != "" {
				if _, seen := filesSeen[path]; !seen {
					filesSeen[path] = struct{}{}
					res.FilesModified = append(res.FilesModified, path)
				}
			}
		}
		if substantive {
			res.EffectiveTurns++
			if current := res.EffectiveTurns - 1; current < len(steps) {
				steps[current].Completed = true
			}
		}
	}

	// Budget exhausted: a bounded non-success, not an error.
	log.Info("turn budget exhausted", "effective_turns", res.EffectiveTurns)
	res.State = StateFailed
	res.Error = fmt.Sprintf("turn budget of %d exhausted", o.opts.MaxTurns)
}

// executeCall runs one parsed call through the registry and appends its
// outcome to the session.
func (o *Orchestrator) executeCall(ctx context.Context, res *Result, call protocol.Call) StepRecord {
	log.Debug("executing call", "tool", call.Name, "line", call.Line)
	outcome := o.registry.Execute(ctx, call.Name, call.Args)

	output := outcome.Output
	if len(output) > stepOutputCap {
		output = output[:stepOutputCap]
	}
	record := StepRecord{
		Iteration: res.Iterations,
		Tool:      call.Name,
		Resource:  registry.ResourceFor(call.Args),
		Success:   outcome.Success,
		Output:    output,
		Error:     outcome.Error,
	}
	res.Steps = append(res.Steps, record)

	content := outcome.Output
	if content == "" {
		content = outcome.Error
	}
	o.session.AddToolResult(call.Name, outcome.Success, content)
	return record
}

// buildContext assembles the next-action prompt from the task, the plan's
// progress, and the previous cycle's outcomes.
func (o *Orchestrator) buildContext(task string, steps []planner.Step, effective int, lastOutcomes []StepRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TASK: %s\n", task)

	if len(steps) > 0 {
		b.WriteString("\nPLAN PROGRESS:\n")
		b.WriteString(planner.TrackProgress(steps, effective))
		b.WriteString("\n")
	}

	if len(lastOutcomes) > 0 {
		b.WriteString("\nLAST ACTION RESULTS:\n")
		for _, outcome := range lastOutcomes {
			marker := "✓"
			detail := outcome.Output
			if !outcome.Success {
				marker = "✗"
				detail = outcome.Error
			}
			if len(detail) > contextOutputCap {
				detail = detail[:contextOutputCap]
			}
			fmt.Fprintf(&b, "%s %s: %s\n", marker, outcome.Tool, detail)
		}
	}

	b.WriteString("\nContinue with the next action, or state that the task is complete.")
	return b.String()
}

// generate prunes the session to budget, then sends it plus the prompt to
// the backend.
func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	o.session.Prune(o.opts.ContextTokenBudget)

	messages := []provider.Message{{Role: "system", Content: o.opts.SystemPrompt}}
	for _, entry := range o.session.Entries() {
		role := string(entry.Role)
		if entry.Role == session.RoleTool {
			role = "user"
		}
		messages = append(messages, provider.Message{Role: role, Content: entry.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: prompt})

	return o.backend.Generate(ctx, messages)
}

func (o *Orchestrator) fail(res *Result, err error) {
	log.Error("quest failed", "err", err)
	res.State = StateFailed
	res.Error = err.Error()
}

func completionPhrase(response string) (string, bool) {
	lowered := strings.ToLower(response)
	for _, phrase := range completionPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// modifiedPath returns the path argument of a write-class call, or "".
func modifiedPath(call protocol.Call) string {
	switch call.Name {
	case "write", "write_lines", "patch":
		return call.Args["path"]
	}
	return ""
}

func defaultSystemPrompt(reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString("You are an autonomous coding agent working inside a single workspace.\n")
	b.WriteString("Invoke tools with the form: Tool: name(key=\"value\", ...)\n")
	b.WriteString("One call per line. When the task is done, say \"task complete\".\n\n")
	b.WriteString("Available tools:\n")
	b.WriteString(reg.Describe())
	return b.String()
}
