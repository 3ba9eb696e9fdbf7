package permission

// DefaultRules are the built-in rules that apply before any user
// configuration. User rules accumulate on top; nothing overrides by name.
func DefaultRules() []Rule {
	return []Rule{
		// Reads: broadly allowed, secrets blocked.
		{Action: ActionAllow, Category: CategoryRead, Pattern: "**/*", Priority: 0},
		{Action: ActionDeny, Category: CategoryRead, Pattern: "**/.env*", Priority: 10},
		{Action: ActionDeny, Category: CategoryRead, Pattern: "**/secrets/**", Priority: 10},

		// Writes: source and docs allowed, vendored and VCS trees blocked.
		{Action: ActionAllow, Category: CategoryWrite, Pattern: "**/*.py", Priority: 0},
		{Action: ActionAllow, Category: CategoryWrite, Pattern: "**/*.js", Priority: 0},
		{Action: ActionAllow, Category: CategoryWrite, Pattern: "**/*.ts", Priority: 0},
		{Action: ActionAllow, Category: CategoryWrite, Pattern: "**/*.go", Priority: 0},
		{Action: ActionAllow, Category: CategoryWrite, Pattern: "**/*.md", Priority: 0},
		{Action: ActionDeny, Category: CategoryWrite, Pattern: "**/node_modules/**", Priority: 10},
		{Action: ActionDeny, Category: CategoryWrite, Pattern: "**/.git/**", Priority: 10},

		// Execution: common toolchains allowed, destructive commands blocked.
		{Action: ActionAllow, Category: CategoryExec, Pattern: "python*", Priority: 0},
		{Action: ActionAllow, Category: CategoryExec, Pattern: "pip*", Priority: 0},
		{Action: ActionAllow, Category: CategoryExec, Pattern: "npm*", Priority: 0},
		{Action: ActionAllow, Category: CategoryExec, Pattern: "go *", Priority: 0},
		{Action: ActionAllow, Category: CategoryExec, Pattern: "git*", Priority: 0},
		{Action: ActionDeny, Category: CategoryExec, Pattern: "rm*", Priority: 10},
		{Action: ActionDeny, Category: CategoryExec, Pattern: "sudo*", Priority: 10},

		// Web: a small allow-list of hosts.
		{Action: ActionAllow, Category: CategoryWeb, Pattern: "*.github.com", Priority: 0},
		{Action: ActionAllow, Category: CategoryWeb, Pattern: "*.stackoverflow.com", Priority: 0},
		{Action: ActionAllow, Category: CategoryWeb, Pattern: "*.python.org", Priority: 0},
	}
}

// Presets are named, additive rule overlays selectable at runtime.
// Activating a preset appends its rules to the effective set; it never
// replaces user-authored rules.
var Presets = map[string][]Rule{
	"security": {
		{Action: ActionDeny, Category: CategoryExec, Pattern: "*", Priority: 100, Description: "Deny all execution"},
		{Action: ActionDeny, Category: CategoryWeb, Pattern: "*", Priority: 100, Description: "Deny all web access"},
		{Action: ActionConfirm, Category: CategoryWrite, Pattern: "**/*", Priority: 50, Description: "Confirm all writes"},
	},
	"open": {
		{Action: ActionAllow, Category: CategoryAll, Pattern: "*", Priority: 0, Description: "Allow everything"},
	},
	"readonly": {
		{Action: ActionAllow, Category: CategoryRead, Pattern: "**/*", Priority: 50},
		{Action: ActionDeny, Category: CategoryWrite, Pattern: "**/*", Priority: 100},
		{Action: ActionDeny, Category: CategoryExec, Pattern: "*", Priority: 100},
	},
}
