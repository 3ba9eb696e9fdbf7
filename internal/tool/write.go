package tool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/questor-cli/questor/internal/registry"
)

type writeArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

// writeHandler creates or overwrites a file, creating parent directories
// as needed.
func writeHandler() registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args writeArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}

		path, err := resolvePath(inv.Workspace, args.Path)
		if err != nil {
			return nil, err
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create parent directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", args.Path, err)
		}

		return registry.OK(fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path)), nil
	}
}

type patchArgs struct {
	Path    string `mapstructure:"path"`
	Find    string `mapstructure:"find"`
	Replace string `mapstructure:"replace"`
}

// patchHandler replaces the first occurrence of a snippet in a file. The
// snippet must be present; a no-op patch is reported as an error so the
// model can correct itself.
func patchHandler(maxFileSize int64) registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args patchArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}
		if args.Find == "" {
			return nil, fmt.Errorf("find must not be empty")
		}

		path, err := resolvePath(inv.Workspace, args.Path)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", args.Path, err)
		}
		if info.Size() > maxFileSize {
			return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit", args.Path, info.Size(), maxFileSize)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", args.Path, err)
		}
		content := string(data)

		idx := strings.Index(content, args.Find)
		if idx < 0 {
			return nil, fmt.Errorf("snippet not found in %s", args.Path)
		}
		patched := content[:idx] + args.Replace + content[idx+len(args.Find):]

		if err := os.WriteFile(path, []byte(patched), info.Mode().Perm()); err != nil {
			return nil, fmt.Errorf("patch %s: %w", args.Path, err)
		}
		return registry.OK(fmt.Sprintf("patched %s (%+d bytes)", args.Path, len(patched)-len(content))), nil
	}
}
