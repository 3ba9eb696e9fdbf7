package config

import (
	"fmt"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	if c.Provider.Model == "" {
		errs = append(errs, "provider.model must not be empty")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, "provider.temperature must be in [0, 2]")
	}
	if c.Provider.MaxOutputTokens < 1 {
		errs = append(errs, "provider.max_output_tokens must be >= 1")
	}

	if c.Quest.MaxTurns < 1 {
		errs = append(errs, "quest.max_turns must be >= 1")
	}

	if c.Session.ContextTokenBudget < 1 {
		errs = append(errs, "session.context_token_budget must be >= 1")
	}
	if c.Session.Dir == "" {
		errs = append(errs, "session.dir must not be empty")
	}

	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.MaxOutputSize < 1 {
		errs = append(errs, "tools.max_output_size must be >= 1")
	}
	if c.Tools.MaxWebSize < 1 {
		errs = append(errs, "tools.max_web_size must be >= 1")
	}
	if c.Tools.ShellTimeout < 1 {
		errs = append(errs, "tools.shell_timeout must be >= 1")
	}
	if c.Tools.WebTimeout < 1 {
		errs = append(errs, "tools.web_timeout must be >= 1")
	}
	if c.Tools.ExecutionLogSize < 1 {
		errs = append(errs, "tools.execution_log_size must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
