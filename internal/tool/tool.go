// Package tool implements the built-in tools: file operations, search,
// shell execution, web fetching, and the todo meta-tool. Each handler
// decodes its arguments into a typed struct and stays inside the
// workspace root.
package tool

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const binaryDetectionSampleSize = 4096

// decodeArgs maps the invocation arguments onto a typed args struct.
// Weak typing lets string-coerced values fill int and bool fields.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// resolvePath anchors a tool path at the workspace root and rejects
// escapes. Absolute paths are allowed only when they stay inside the
// workspace.
func resolvePath(workspace, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	abs := path
	if !filepath.IsAbs(path) {
		abs = filepath.Join(workspace, path)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(workspace, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return abs, nil
}

// isBinaryFile reports whether the file looks binary, by checking for a
// null byte in the leading sample.
func isBinaryFile(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	buf := make([]byte, binaryDetectionSampleSize)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return false, err
	}
	for i := range n {
		if buf[i] == 0 {
			return true, nil
		}
	}
	return false, nil
}
