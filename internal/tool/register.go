package tool

import (
	"net/http"
	"time"

	"github.com/questor-cli/questor/internal/config"
	"github.com/questor-cli/questor/internal/registry"
)

// RegisterBuiltins installs the built-in tool set into the registry.
func RegisterBuiltins(r *registry.Registry, cfg *config.Config) {
	r.Register(&registry.Definition{
		Name:        "read",
		Description: "Read a file from the workspace, optionally a line range.",
		Parameters: []registry.Parameter{
			{Name: "path", Type: registry.TypeString, Description: "file path relative to the workspace", Required: true},
			{Name: "offset", Type: registry.TypeInt, Description: "1-based first line to read"},
			{Name: "limit", Type: registry.TypeInt, Description: "maximum number of lines"},
		},
		Category:           "read",
		RequiresPermission: true,
		Handler:            readHandler(cfg.Tools.MaxFileSize),
	})

	r.Register(&registry.Definition{
		Name:        "write",
		Description: "Create or overwrite a file with the given content.",
		Parameters: []registry.Parameter{
			{Name: "path", Type: registry.TypeString, Description: "file path relative to the workspace", Required: true},
			{Name: "content", Type: registry.TypeString, Description: "full file content", Required: true},
		},
		Category:           "write",
		RequiresPermission: true,
		Handler:            writeHandler(),
	})

	r.Register(&registry.Definition{
		Name:        "patch",
		Description: "Replace the first occurrence of a snippet in a file.",
		Parameters: []registry.Parameter{
			{Name: "path", Type: registry.TypeString, Description: "file path relative to the workspace", Required: true},
			{Name: "find", Type: registry.TypeString, Description: "exact snippet to replace", Required: true},
			{Name: "replace", Type: registry.TypeString, Description: "replacement text"},
		},
		Category:           "write",
		RequiresPermission: true,
		Handler:            patchHandler(cfg.Tools.MaxFileSize),
	})

	r.Register(&registry.Definition{
		Name:        "grep",
		Description: "Search file contents with a regular expression.",
		Parameters: []registry.Parameter{
			{Name: "pattern", Type: registry.TypeString, Description: "regular expression", Required: true},
			{Name: "path", Type: registry.TypeString, Description: "directory to search, defaults to the workspace root"},
		},
		Category:           "read",
		RequiresPermission: true,
		Handler:            grepHandler(cfg.Tools.MaxFileSize),
	})

	r.Register(&registry.Definition{
		Name:        "find",
		Description: "List files whose relative path matches a glob pattern.",
		Parameters: []registry.Parameter{
			{Name: "pattern", Type: registry.TypeString, Description: "glob pattern, ** crosses directories", Required: true},
		},
		Category:           "read",
		RequiresPermission: true,
		Handler:            findHandler(),
	})

	r.Register(&registry.Definition{
		Name:        "shell",
		Description: "Run a shell command in the workspace directory.",
		Parameters: []registry.Parameter{
			{Name: "cmd", Type: registry.TypeString, Description: "command line to run", Required: true},
		},
		Category:           "exec",
		RequiresPermission: true,
		Timeout:            time.Duration(cfg.Tools.ShellTimeout) * time.Second,
		Handler:            shellHandler(cfg.Tools.MaxOutputSize),
	})

	r.Register(&registry.Definition{
		Name:        "webfetch",
		Description: "Fetch a http(s) URL and return the response body.",
		Parameters: []registry.Parameter{
			{Name: "url", Type: registry.TypeString, Description: "http or https URL", Required: true},
		},
		Category:           "web",
		RequiresPermission: true,
		Timeout:            time.Duration(cfg.Tools.WebTimeout) * time.Second,
		Handler:            webfetchHandler(&http.Client{}, cfg.Tools.MaxWebSize, time.Duration(cfg.Tools.WebTimeout)*time.Second),
	})

	r.Register(&registry.Definition{
		Name:        "todowrite",
		Description: "Replace the quest todo list. Bookkeeping only.",
		Parameters: []registry.Parameter{
			{Name: "content", Type: registry.TypeString, Description: "markdown todo list", Required: true},
		},
		Category: "meta",
		Handler:  todowriteHandler(),
	})
}
