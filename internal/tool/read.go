package tool

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/questor-cli/questor/internal/registry"
)

type readArgs struct {
	Path   string `mapstructure:"path"`
	Offset int    `mapstructure:"offset"`
	Limit  int    `mapstructure:"limit"`
}

// readHandler returns file content, optionally restricted to a line range
// (1-based offset, limit lines). Binary files and files over the size cap
// are rejected rather than dumped into the context.
func readHandler(maxFileSize int64) registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args readArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}

		path, err := resolvePath(inv.Workspace, args.Path)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args.Path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", args.Path)
		}
		if info.Size() > maxFileSize {
			return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit", args.Path, info.Size(), maxFileSize)
		}

		if binary, err := isBinaryFile(path); err != nil {
			return nil, err
		} else if binary {
			return nil, fmt.Errorf("%s appears to be a binary file", args.Path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", args.Path, err)
		}
		content := string(data)

		if args.Offset > 0 || args.Limit > 0 {
			lines := strings.Split(content, "\n")
			start := args.Offset
			if start > 0 {
				start--
			}
			if start >= len(lines) {
				return nil, fmt.Errorf("offset %d is past the end of %s (%d lines)", args.Offset, args.Path, len(lines))
			}
			end := len(lines)
			if args.Limit > 0 && start+args.Limit < end {
				end = start + args.Limit
			}
			content = strings.Join(lines[start:end], "\n")
		}

		return registry.OK(content), nil
	}
}
