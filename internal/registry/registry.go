// Package registry holds tool definitions and provides the uniform
// execution framework that turns heterogeneous handlers into one result
// shape. A handler may panic, return a canonical *Result, a Legacy triple,
// or a bare string; Execute normalizes all of them and never lets a panic
// escape.
package registry

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// PermissionChecker decides whether a tool may act on a resource.
type PermissionChecker interface {
	Check(tool, resource string) bool
}

// Invocation carries everything a handler needs: the coerced arguments,
// the workspace root, and the permission-check capability.
type Invocation struct {
	Args        map[string]any
	Workspace   string
	Permissions PermissionChecker
	Timeout     time.Duration
}

// String returns the raw string form of an argument, or "" if absent.
func (inv *Invocation) String(name string) string {
	v, ok := inv.Args[name]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Int returns an integer argument, or def if absent.
func (inv *Invocation) Int(name string, def int) int {
	if v, ok := inv.Args[name].(int); ok {
		return v
	}
	return def
}

// Bool returns a boolean argument, or def if absent.
func (inv *Invocation) Bool(name string, def bool) bool {
	if v, ok := inv.Args[name].(bool); ok {
		return v
	}
	return def
}

// Handler executes a tool. The first return value may be a *Result, a
// Legacy triple, or a string; anything else is rendered with fmt. A non-nil
// error becomes a FAILURE result.
type Handler func(ctx context.Context, inv *Invocation) (any, error)

// LogEntry records one tool execution for audit and debugging. The log is
// never consulted for control flow.
type LogEntry struct {
	Tool      string
	Args      map[string]string
	Success   bool
	Status    Status
	Duration  time.Duration
	Timestamp time.Time
}

// Registry owns the name -> definition map and the execution pipeline.
// It is constructed at startup and passed by reference; there is no
// process-wide singleton.
type Registry struct {
	workspace string
	perms     PermissionChecker

	mu       sync.RWMutex
	tools    map[string]*Definition
	execLog  []LogEntry
	logLimit int
}

// New creates an empty registry rooted at the given workspace.
func New(workspace string, perms PermissionChecker, logLimit int) *Registry {
	if logLimit <= 0 {
		logLimit = 100
	}
	return &Registry{
		workspace: workspace,
		perms:     perms,
		tools:     make(map[string]*Definition),
		logLimit:  logLimit,
	}
}

// Register adds or replaces a tool definition.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = def
	log.Debug("registered tool", "name", def.Name, "category", def.Category)
}

// Unregister removes a tool by name, reporting whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return false
	}
	delete(r.tools, name)
	return true
}

// Get returns the definition for name, if registered.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known returns the set of registered names, as consumed by the parser.
func (r *Registry) Known() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	known := make(map[string]struct{}, len(r.tools))
	for name := range r.tools {
		known[name] = struct{}{}
	}
	return known
}

// Execute runs the named tool against raw string arguments.
//
// The pipeline: unknown name, permission check, parameter validation and
// coercion, handler invocation with wall-clock timing, normalization of
// the handler's return value. A panicking handler yields a FAILURE result
// carrying the stack trace; Execute itself never panics.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]string) *Result {
	start := time.Now()

	def, ok := r.Get(name)
	if !ok {
		res := Fail(fmt.Sprintf("tool not found: %s", name), StatusNotFound)
		r.logExecution(name, args, res, time.Since(start))
		return res
	}

	if def.RequiresPermission && r.perms != nil {
		resource := ResourceFor(args)
		if !r.perms.Check(name, resource) {
			res := Fail(fmt.Sprintf("permission denied for %s on %s", name, resource), StatusPermissionDenied).
				withDuration(time.Since(start))
			r.logExecution(name, args, res, time.Since(start))
			return res
		}
	}

	coerced := make(map[string]any, len(args))
	for _, p := range def.Parameters {
		raw, supplied := args[p.Name]
		if !supplied {
			if p.Required && p.Default == "" {
				res := Fail(fmt.Sprintf("required parameter %q is missing", p.Name), StatusValidationError)
				r.logExecution(name, args, res, time.Since(start))
				return res
			}
			if p.Default == "" {
				continue
			}
			raw = p.Default
		}
		v, err := p.coerce(raw)
		if err != nil {
			res := Fail(err.Error(), StatusValidationError)
			r.logExecution(name, args, res, time.Since(start))
			return res
		}
		coerced[p.Name] = v
	}
	// Undeclared arguments pass through as strings.
	declared := make(map[string]struct{}, len(def.Parameters))
	for _, p := range def.Parameters {
		declared[p.Name] = struct{}{}
	}
	for k, v := range args {
		if _, ok := declared[k]; !ok {
			coerced[k] = v
		}
	}

	inv := &Invocation{
		Args:        coerced,
		Workspace:   r.workspace,
		Permissions: r.perms,
		Timeout:     def.Timeout,
	}

	res := r.invoke(ctx, def, inv)
	res.withDuration(time.Since(start))
	r.logExecution(name, args, res, time.Since(start))
	return res
}

// invoke calls the handler and normalizes whatever comes back. This is the
// single translation point from "may panic" handler code to the always-safe
// Result shape.
func (r *Registry) invoke(ctx context.Context, def *Definition, inv *Invocation) (res *Result) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("tool panicked", "tool", def.Name, "panic", p)
			res = &Result{
				Success: false,
				Output:  fmt.Sprintf("panic: %v\n%s", p, debug.Stack()),
				Error:   fmt.Sprintf("%v", p),
				Status:  StatusFailure,
			}
		}
	}()

	out, err := def.Handler(ctx, inv)
	if err != nil {
		if canonical, ok := out.(*Result); ok && canonical != nil {
			canonical.normalize()
			return canonical
		}
		return Fail(err.Error(), StatusFailure)
	}

	switch v := out.(type) {
	case *Result:
		v.normalize()
		return v
	case Legacy:
		res := &Result{Success: v.Success, Output: v.Output, Error: v.Error, Status: StatusSuccess}
		res.normalize()
		return res
	case string:
		return OK(v)
	case nil:
		return OK("")
	default:
		return OK(fmt.Sprintf("%v", v))
	}
}

// ResourceFor derives the resource string a permission check is evaluated
// against: a path wins, then a url, then a command, then a rendering of
// all arguments.
func ResourceFor(args map[string]string) string {
	if v, ok := args["path"]; ok {
		return v
	}
	if v, ok := args["url"]; ok {
		return v
	}
	if v, ok := args["cmd"]; ok {
		return v
	}
	pairs := make([]string, 0, len(args))
	for k, v := range args {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}

func (r *Registry) logExecution(name string, args map[string]string, res *Result, d time.Duration) {
	truncated := make(map[string]string, len(args))
	for k, v := range args {
		if len(v) > 100 {
			v = v[:100]
		}
		truncated[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.execLog = append(r.execLog, LogEntry{
		Tool:      name,
		Args:      truncated,
		Success:   res.Success,
		Status:    res.Status,
		Duration:  d,
		Timestamp: time.Now(),
	})
	if len(r.execLog) > r.logLimit {
		r.execLog = r.execLog[len(r.execLog)-r.logLimit:]
	}
}

// ExecutionLog returns a copy of the rolling execution log, oldest first.
func (r *Registry) ExecutionLog() []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LogEntry, len(r.execLog))
	copy(out, r.execLog)
	return out
}

// Describe renders all tools grouped by category, for the system prompt.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCategory := make(map[string][]*Definition)
	for _, def := range r.tools {
		byCategory[def.Category] = append(byCategory[def.Category], def)
	}
	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, cat := range categories {
		defs := byCategory[cat]
		sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
		fmt.Fprintf(&b, "## %s\n", strings.ToUpper(cat))
		for _, def := range defs {
			desc := def.Description
			if i := strings.IndexByte(desc, '\n'); i >= 0 {
				desc = desc[:i]
			}
			fmt.Fprintf(&b, "  %s\n    %s\n", def.Signature(), desc)
		}
		b.WriteString("\n")
	}
	return b.String()
}
