package permission

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// Confirmer asks the user to approve a (tool, resource) pair when a
// confirm rule matches. A nil Confirmer means the engine runs
// non-interactively and confirm rules fail closed.
type Confirmer interface {
	Confirm(tool, resource string) (bool, error)
}

// fileConfig is the on-disk YAML shape of a permission config file.
type fileConfig struct {
	Version      string `yaml:"version,omitempty"`
	ActivePreset string `yaml:"active_preset,omitempty"`
	Rules        []Rule `yaml:"rules"`
}

// Engine evaluates permission rules against (tool, resource) pairs.
//
// Confirmation decisions are cached by pair for the engine's lifetime so
// the user is never re-asked. The cache is process-scoped, not
// quest-scoped: a quest re-running the same call inherits earlier answers.
type Engine struct {
	globalPath string
	localPath  string
	confirmer  Confirmer

	mu           sync.Mutex
	userRules    []Rule
	activePreset string
	cache        map[string]bool
}

// NewEngine creates an engine for the given workspace, loading the global
// (~/.questor/permissions.yaml) and local (<workspace>/.questor/
// permissions.yaml) rule files. Load failures degrade to the built-in
// defaults rather than failing.
func NewEngine(workspace string, confirmer Confirmer) *Engine {
	globalPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		globalPath = filepath.Join(home, ".questor", "permissions.yaml")
	}
	localPath := filepath.Join(workspace, ".questor", "permissions.yaml")
	return NewEngineWithPaths(globalPath, localPath, confirmer)
}

// NewEngineWithPaths creates an engine reading the given config files
// directly. Used by tests and by callers with non-standard layouts.
func NewEngineWithPaths(globalPath, localPath string, confirmer Confirmer) *Engine {
	e := &Engine{
		globalPath: globalPath,
		localPath:  localPath,
		confirmer:  confirmer,
		cache:      make(map[string]bool),
	}
	e.reload()
	return e
}

// reload re-reads both config files. Global rules load before local ones
// so both accumulate; there is no override-by-name.
func (e *Engine) reload() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.userRules = nil
	for _, path := range []string{e.globalPath, e.localPath} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn("failed to read permission config", "path", path, "err", err)
			}
			continue
		}
		var cfg fileConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Warn("invalid permission config", "path", path, "err", err)
			continue
		}
		for _, r := range cfg.Rules {
			if err := validateRule(r); err != nil {
				log.Warn("skipping invalid rule", "path", path, "err", err)
				continue
			}
			e.userRules = append(e.userRules, r)
		}
		if cfg.ActivePreset != "" {
			e.activePreset = cfg.ActivePreset
		}
	}
}

func validateRule(r Rule) error {
	switch r.Action {
	case ActionAllow, ActionDeny, ActionConfirm:
	default:
		return fmt.Errorf("unknown action %q", r.Action)
	}
	switch r.Category {
	case CategoryRead, CategoryWrite, CategoryExec, CategoryWeb, CategoryAll:
	default:
		return fmt.Errorf("unknown category %q", r.Category)
	}
	if r.Pattern == "" {
		return fmt.Errorf("rule has empty pattern")
	}
	return nil
}

// EffectiveRules returns the merged rule set for a check: built-in
// defaults, then user rules, then the active preset's rules, sorted by
// descending priority. The sort is stable so insertion order breaks ties.
func (e *Engine) EffectiveRules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effectiveRulesLocked()
}

func (e *Engine) effectiveRulesLocked() []Rule {
	rules := make([]Rule, 0, len(e.userRules)+24)
	rules = append(rules, DefaultRules()...)
	rules = append(rules, e.userRules...)
	if preset, ok := Presets[e.activePreset]; ok {
		rules = append(rules, preset...)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules
}

// Decide scans rules in order and returns the action of the first rule
// matching the (tool, resource) pair. The second return value is false
// when no rule matched.
func Decide(rules []Rule, tool, resource string) (Action, bool) {
	for _, rule := range rules {
		if rule.Matches(tool, resource) {
			return rule.Action, true
		}
	}
	return "", false
}

// Check decides whether tool may act on resource. The first matching rule
// in priority order wins; no match means allow.
func (e *Engine) Check(tool, resource string) bool {
	e.mu.Lock()
	rules := e.effectiveRulesLocked()
	e.mu.Unlock()

	action, matched := Decide(rules, tool, resource)
	if !matched {
		return true
	}
	switch action {
	case ActionDeny:
		log.Debug("permission denied", "tool", tool, "resource", resource)
		return false
	case ActionConfirm:
		return e.confirm(tool, resource)
	default:
		return true
	}
}

// confirm resolves a confirm rule: cached answer, then interactive ask,
// then fail closed.
func (e *Engine) confirm(tool, resource string) bool {
	key := tool + ":" + resource

	e.mu.Lock()
	if decision, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return decision
	}
	e.mu.Unlock()

	if e.confirmer == nil {
		log.Debug("confirmation required but non-interactive, denying", "tool", tool, "resource", resource)
		return false
	}

	decision, err := e.confirmer.Confirm(tool, resource)
	if err != nil {
		log.Warn("confirmation failed, denying", "tool", tool, "err", err)
		return false
	}

	e.mu.Lock()
	e.cache[key] = decision
	e.mu.Unlock()
	return decision
}

// SetPreset activates a named preset (empty string deactivates). The
// choice is persisted to the local config file; user rules in that file
// are preserved.
func (e *Engine) SetPreset(name string) error {
	if name != "" {
		if _, ok := Presets[name]; !ok {
			return fmt.Errorf("unknown preset: %s", name)
		}
	}

	e.mu.Lock()
	e.activePreset = name
	e.mu.Unlock()

	return e.updateLocalConfig(func(cfg *fileConfig) {
		cfg.ActivePreset = name
	})
}

// ActivePreset returns the currently active preset name, or "".
func (e *Engine) ActivePreset() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activePreset
}

// AddRule appends a rule to the local or global config file and to the
// in-memory rule set.
func (e *Engine) AddRule(r Rule, local bool) error {
	if err := validateRule(r); err != nil {
		return err
	}

	e.mu.Lock()
	e.userRules = append(e.userRules, r)
	e.mu.Unlock()

	path := e.localPath
	if !local {
		path = e.globalPath
	}
	if path == "" {
		return nil
	}
	return e.updateConfigFile(path, func(cfg *fileConfig) {
		cfg.Rules = append(cfg.Rules, r)
	})
}

func (e *Engine) updateLocalConfig(mutate func(*fileConfig)) error {
	if e.localPath == "" {
		return nil
	}
	return e.updateConfigFile(e.localPath, mutate)
}

// updateConfigFile read-modify-writes a whole config file. There is no
// fine-grained locking; concurrent processes mutating the same workspace
// are out of scope.
func (e *Engine) updateConfigFile(path string, mutate func(*fileConfig)) error {
	var cfg fileConfig
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	mutate(&cfg)
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Describe summarizes the effective rules for the system prompt.
func (e *Engine) Describe() string {
	rules := e.EffectiveRules()
	if len(rules) == 0 {
		return "No permission rules configured"
	}

	marks := map[Action]string{ActionAllow: "+", ActionDeny: "-", ActionConfirm: "?"}
	lines := []string{fmt.Sprintf("Permission rules (%d active):", len(rules))}
	for i, r := range rules {
		if i >= 10 {
			lines = append(lines, fmt.Sprintf("  ... and %d more rules", len(rules)-10))
			break
		}
		lines = append(lines, fmt.Sprintf("  %s %s: %s", marks[r.Action], r.Category, r.Pattern))
	}
	if preset := e.ActivePreset(); preset != "" {
		lines = append(lines, "Active preset: "+preset)
	}
	return strings.Join(lines, "\n")
}
