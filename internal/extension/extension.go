// Package extension loads user-defined tools from YAML manifests under
// .questor/extensions/ and exposes them as subprocess-backed registry
// definitions. An extension receives its arguments as --key value flags
// and reports through stdout.
package extension

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/questor-cli/questor/internal/registry"
)

// Manifest is the on-disk description of one extension tool.
type Manifest struct {
	Name               string          `yaml:"name"`
	Description        string          `yaml:"description"`
	Command            string          `yaml:"command"`
	Args               []string        `yaml:"args"`
	Category           string          `yaml:"category"`
	Timeout            int             `yaml:"timeout"`
	RequiresPermission bool            `yaml:"requires_permission"`
	Parameters         []ManifestParam `yaml:"parameters"`
}

type ManifestParam struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     string `yaml:"default"`
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return errors.New("extension name must not be empty")
	}
	if m.Command == "" {
		return fmt.Errorf("extension %s: command must not be empty", m.Name)
	}
	for _, p := range m.Parameters {
		if p.Name == "" {
			return fmt.Errorf("extension %s: parameter name must not be empty", m.Name)
		}
	}
	return nil
}

// Load reads every *.yaml manifest in dir and returns the resulting
// definitions. A malformed manifest is logged and skipped; it never takes
// the rest of the extension set down.
func Load(dir string) []*registry.Definition {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var defs []*registry.Definition
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable extension manifest", "path", path, "err", err)
			continue
		}
		var manifest Manifest
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			log.Warn("skipping malformed extension manifest", "path", path, "err", err)
			continue
		}
		if err := manifest.validate(); err != nil {
			log.Warn("skipping invalid extension manifest", "path", path, "err", err)
			continue
		}
		defs = append(defs, definitionFor(&manifest))
		log.Debug("loaded extension", "name", manifest.Name, "command", manifest.Command)
	}
	return defs
}

func definitionFor(m *Manifest) *registry.Definition {
	category := m.Category
	if category == "" {
		category = "extension"
	}
	params := make([]registry.Parameter, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		params = append(params, registry.Parameter{
			Name:        p.Name,
			Type:        registry.ParamType(p.Type),
			Description: p.Description,
			Required:    p.Required,
			Default:     p.Default,
		})
	}
	return &registry.Definition{
		Name:               m.Name,
		Description:        m.Description,
		Parameters:         params,
		Category:           category,
		RequiresPermission: m.RequiresPermission,
		Timeout:            time.Duration(m.Timeout) * time.Second,
		Handler:            handlerFor(m),
	}
}

// handlerFor builds the subprocess handler. Invocation arguments are
// appended as --key value pairs in sorted key order so calls are
// reproducible.
func handlerFor(m *Manifest) registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		runCtx := ctx
		if inv.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
			defer cancel()
		}

		keys := make([]string, 0, len(inv.Args))
		for k := range inv.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		cmdArgs := append([]string{}, m.Args...)
		for _, k := range keys {
			cmdArgs = append(cmdArgs, "--"+k, fmt.Sprintf("%v", inv.Args[k]))
		}

		cmd := exec.CommandContext(runCtx, m.Command, cmdArgs...)
		cmd.Dir = inv.Workspace

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		runErr := cmd.Run()

		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res := registry.Fail(fmt.Sprintf("extension %s timed out after %s", m.Name, inv.Timeout), registry.StatusTimeout)
			res.Output = buf.String()
			return res, nil
		}
		if runErr != nil {
			res := registry.Fail(runErr.Error(), registry.StatusFailure)
			res.Output = buf.String()
			return res, nil
		}
		return registry.OK(buf.String()), nil
	}
}
