package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/questor-cli/questor/internal/registry"
)

type todoArgs struct {
	Content string `mapstructure:"content"`
}

// todowriteHandler replaces the quest todo list. This is bookkeeping, not
// progress: the orchestrator treats it as a meta-tool.
func todowriteHandler() registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args todoArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}

		dir := filepath.Join(inv.Workspace, ".questor")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create todo directory: %w", err)
		}
		path := filepath.Join(dir, "todo.md")
		if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write todo list: %w", err)
		}

		items := 0
		for _, line := range strings.Split(args.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
				items++
			}
		}
		return registry.OK(fmt.Sprintf("todo list updated (%d items)", items)), nil
	}
}
