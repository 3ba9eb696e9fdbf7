package config

// Config holds all runtime configuration.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// Values present in the config file override defaults, including explicit
// zero values; missing keys are left at their defaults.
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Quest    QuestConfig    `json:"quest"`
	Session  SessionConfig  `json:"session"`
	Tools    ToolsConfig    `json:"tools"`
}

type ProviderConfig struct {
	Model           string  `json:"model"`             // Default: "gemini-2.5-flash"
	Temperature     float64 `json:"temperature"`       // Default: 0.7
	MaxOutputTokens int     `json:"max_output_tokens"` // Default: 8192
}

type QuestConfig struct {
	// MaxTurns bounds the effective turns a quest may consume.
	MaxTurns int `json:"max_turns"` // Default: 15
}

type SessionConfig struct {
	// ContextTokenBudget is the estimated-token ceiling the session is
	// pruned back under before each model call.
	ContextTokenBudget int `json:"context_token_budget"` // Default: 100000
	// Dir is the session persistence directory, relative to the workspace.
	Dir string `json:"dir"` // Default: ".questor/sessions"
}

type ToolsConfig struct {
	MaxFileSize      int64 `json:"max_file_size"`      // Default: 5 * 1024 * 1024 (5MB)
	MaxOutputSize    int64 `json:"max_output_size"`    // Default: 1024 * 1024 (1MB)
	MaxWebSize       int64 `json:"max_web_size"`       // Default: 2 * 1024 * 1024 (2MB)
	ShellTimeout     int   `json:"shell_timeout"`      // Default: 120 (seconds)
	WebTimeout       int   `json:"web_timeout"`        // Default: 30 (seconds)
	ExecutionLogSize int   `json:"execution_log_size"` // Default: 100
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Model:           "gemini-2.5-flash",
			Temperature:     0.7,
			MaxOutputTokens: 8192,
		},
		Quest: QuestConfig{
			MaxTurns: 15,
		},
		Session: SessionConfig{
			ContextTokenBudget: 100000,
			Dir:                ".questor/sessions",
		},
		Tools: ToolsConfig{
			MaxFileSize:      5 * 1024 * 1024,
			MaxOutputSize:    1024 * 1024,
			MaxWebSize:       2 * 1024 * 1024,
			ShellTimeout:     120,
			WebTimeout:       30,
			ExecutionLogSize: 100,
		},
	}
}

// IterationCeiling is the hard bound on raw loop iterations, derived from
// the effective-turn limit so runaway non-substantive cycles still halt.
func (c *Config) IterationCeiling() int {
	ceiling := 3 * c.Quest.MaxTurns
	if ceiling < 10 {
		ceiling = 10
	}
	return ceiling
}
