package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questor-cli/questor/internal/config"
	"github.com/questor-cli/questor/internal/registry"
)

type allowAll struct{}

func (allowAll) Check(tool, resource string) bool { return true }

func newTestRegistry(t *testing.T) (*registry.Registry, string) {
	t.Helper()
	workspace := t.TempDir()
	r := registry.New(workspace, allowAll{}, 10)
	RegisterBuiltins(r, config.DefaultConfig())
	return r, workspace
}

func writeTestFile(t *testing.T, workspace, name, content string) {
	t.Helper()
	path := filepath.Join(workspace, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadFile(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, "hello.txt", "line one\nline two\nline three")

	res := r.Execute(context.Background(), "read", map[string]string{"path": "hello.txt"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "line one\nline two\nline three", res.Output)
}

func TestReadFileLineRange(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, "hello.txt", "a\nb\nc\nd\ne")

	res := r.Execute(context.Background(), "read", map[string]string{
		"path": "hello.txt", "offset": "2", "limit": "2",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "b\nc", res.Output)
}

func TestReadFileRejectsBinary(t *testing.T) {
	r, workspace := newTestRegistry(t)
	require.NoError(t, os.WriteFile(filepath.Join(workspace, "blob"), []byte{'a', 0, 'b'}, 0o644))

	res := r.Execute(context.Background(), "read", map[string]string{"path": "blob"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "binary")
}

func TestReadFileMissing(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "read", map[string]string{"path": "nope.txt"})
	assert.False(t, res.Success)
	assert.Equal(t, registry.StatusFailure, res.Status)
}

func TestPathEscapeRejected(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "read", map[string]string{"path": "../outside.txt"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "escapes the workspace")
}

func TestWriteFileCreatesParents(t *testing.T) {
	r, workspace := newTestRegistry(t)

	res := r.Execute(context.Background(), "write", map[string]string{
		"path": "deep/nested/out.txt", "content": "payload",
	})

	require.True(t, res.Success, res.Error)
	data, err := os.ReadFile(filepath.Join(workspace, "deep/nested/out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestPatchReplacesFirstOccurrence(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, "code.go", "foo bar foo")

	res := r.Execute(context.Background(), "patch", map[string]string{
		"path": "code.go", "find": "foo", "replace": "baz",
	})

	require.True(t, res.Success, res.Error)
	data, err := os.ReadFile(filepath.Join(workspace, "code.go"))
	require.NoError(t, err)
	assert.Equal(t, "baz bar foo", string(data))
}

func TestPatchSnippetNotFound(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, "code.go", "nothing here")

	res := r.Execute(context.Background(), "patch", map[string]string{
		"path": "code.go", "find": "absent", "replace": "x",
	})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "snippet not found")
}

func TestGrepFindsMatches(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, "a.txt", "needle in line one\nnothing\nanother needle")
	writeTestFile(t, workspace, "sub/b.txt", "needle again")

	res := r.Execute(context.Background(), "grep", map[string]string{"pattern": "needle"})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "a.txt:1: needle in line one")
	assert.Contains(t, res.Output, "a.txt:3: another needle")
	assert.Contains(t, res.Output, filepath.Join("sub", "b.txt")+":1: needle again")
}

func TestGrepHonorsGitignore(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, ".gitignore", "vendor/\n")
	writeTestFile(t, workspace, "vendor/dep.txt", "needle")
	writeTestFile(t, workspace, "main.txt", "needle")

	res := r.Execute(context.Background(), "grep", map[string]string{"pattern": "needle"})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "main.txt")
	assert.NotContains(t, res.Output, "vendor")
}

func TestGrepInvalidPattern(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "grep", map[string]string{"pattern": "("})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid pattern")
}

func TestFindGlob(t *testing.T) {
	r, workspace := newTestRegistry(t)
	writeTestFile(t, workspace, "a.go", "x")
	writeTestFile(t, workspace, "pkg/b.go", "x")
	writeTestFile(t, workspace, "pkg/c.txt", "x")

	res := r.Execute(context.Background(), "find", map[string]string{"pattern": "**/*.go"})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "a.go")
	assert.Contains(t, res.Output, filepath.Join("pkg", "b.go"))
	assert.NotContains(t, res.Output, "c.txt")
}

func TestFindNoMatches(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "find", map[string]string{"pattern": "*.zig"})
	require.True(t, res.Success)
	assert.Contains(t, res.Output, "no files match")
}

func TestShellSuccess(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "shell", map[string]string{"cmd": "echo hello"})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "hello\n", res.Output)
}

func TestShellFailureKeepsOutput(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "shell", map[string]string{"cmd": "echo partial; exit 3"})

	assert.False(t, res.Success)
	assert.Equal(t, registry.StatusFailure, res.Status)
	assert.Contains(t, res.Output, "partial")
}

func TestShellTimeout(t *testing.T) {
	workspace := t.TempDir()
	r := registry.New(workspace, allowAll{}, 10)
	r.Register(&registry.Definition{
		Name: "shell",
		Parameters: []registry.Parameter{
			{Name: "cmd", Type: registry.TypeString, Required: true},
		},
		Category: "exec",
		Timeout:  100 * time.Millisecond,
		Handler:  shellHandler(1024 * 1024),
	})

	res := r.Execute(context.Background(), "shell", map[string]string{"cmd": "sleep 5"})

	assert.False(t, res.Success)
	assert.Equal(t, registry.StatusTimeout, res.Status)
}

func TestWebfetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("page body"))
	}))
	defer server.Close()

	workspace := t.TempDir()
	r := registry.New(workspace, allowAll{}, 10)
	r.Register(&registry.Definition{
		Name: "webfetch",
		Parameters: []registry.Parameter{
			{Name: "url", Type: registry.TypeString, Required: true},
		},
		Category: "web",
		Handler:  webfetchHandler(server.Client(), 1024, 5*time.Second),
	})

	res := r.Execute(context.Background(), "webfetch", map[string]string{"url": server.URL})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "page body", res.Output)
}

func TestWebfetchRejectsScheme(t *testing.T) {
	r, _ := newTestRegistry(t)

	res := r.Execute(context.Background(), "webfetch", map[string]string{"url": "file:///etc/passwd"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unsupported url scheme")
}

func TestWebfetchTruncatesLargeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	workspace := t.TempDir()
	r := registry.New(workspace, allowAll{}, 10)
	r.Register(&registry.Definition{
		Name: "webfetch",
		Parameters: []registry.Parameter{
			{Name: "url", Type: registry.TypeString, Required: true},
		},
		Category: "web",
		Handler:  webfetchHandler(server.Client(), 1024, 5*time.Second),
	})

	res := r.Execute(context.Background(), "webfetch", map[string]string{"url": server.URL})

	require.True(t, res.Success)
	assert.Contains(t, res.Output, "(body truncated)")
}

func TestTodowrite(t *testing.T) {
	r, workspace := newTestRegistry(t)

	res := r.Execute(context.Background(), "todowrite", map[string]string{
		"content": "- first\n- second\nnot an item\n* third",
	})

	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Output, "3 items")
	data, err := os.ReadFile(filepath.Join(workspace, ".questor", "todo.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "- first")
}

func TestRegisterBuiltinsNames(t *testing.T) {
	r, _ := newTestRegistry(t)

	names := r.Names()
	assert.Equal(t, []string{"find", "grep", "patch", "read", "shell", "todowrite", "webfetch", "write"}, names)
}
