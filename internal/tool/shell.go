package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/questor-cli/questor/internal/registry"
)

type shellArgs struct {
	Cmd string `mapstructure:"cmd"`
}

// shellHandler runs a command through the shell in the workspace
// directory. The invocation timeout bounds wall-clock time; hitting it
// yields a TIMEOUT result carrying whatever output was produced.
func shellHandler(maxOutputSize int64) registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args shellArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}
		if strings.TrimSpace(args.Cmd) == "" {
			return nil, fmt.Errorf("cmd must not be empty")
		}

		runCtx := ctx
		if inv.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, inv.Timeout)
			defer cancel()
		}

		log.Debug("running shell command", "cmd", args.Cmd)
		cmd := exec.CommandContext(runCtx, "sh", "-c", args.Cmd)
		cmd.Dir = inv.Workspace

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf
		runErr := cmd.Run()

		output := buf.String()
		if int64(len(output)) > maxOutputSize {
			output = output[:maxOutputSize] + "\n... (output truncated)"
		}

		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res := registry.Fail(fmt.Sprintf("command timed out after %s", inv.Timeout), registry.StatusTimeout)
			res.Output = output
			return res, nil
		}
		if runErr != nil {
			res := registry.Fail(runErr.Error(), registry.StatusFailure)
			res.Output = output
			return res, nil
		}
		return registry.OK(output), nil
	}
}
