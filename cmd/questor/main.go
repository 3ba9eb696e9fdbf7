// Package main is the questor command line interface. It wires the
// configuration, permission engine, tool registry, session store, and
// quest orchestrator together and runs a single quest to completion.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/questor-cli/questor/internal/config"
	"github.com/questor-cli/questor/internal/extension"
	"github.com/questor-cli/questor/internal/permission"
	"github.com/questor-cli/questor/internal/provider"
	"github.com/questor-cli/questor/internal/provider/gemini"
	"github.com/questor-cli/questor/internal/quest"
	"github.com/questor-cli/questor/internal/registry"
	"github.com/questor-cli/questor/internal/session"
	"github.com/questor-cli/questor/internal/tool"
	"github.com/questor-cli/questor/internal/ui"
)

type options struct {
	task           string
	workspace      string
	preset         string
	maxTurns       int
	nonInteractive bool
	resume         bool
	listSessions   bool
	verbose        bool
}

func main() {
	var opts options
	flag.StringVar(&opts.task, "task", "", "task to run")
	flag.StringVar(&opts.workspace, "workspace", ".", "workspace directory")
	flag.StringVar(&opts.preset, "preset", "", "permission preset (security, open, readonly)")
	flag.IntVar(&opts.maxTurns, "max-turns", 0, "override the effective turn limit")
	flag.BoolVar(&opts.nonInteractive, "non-interactive", false, "deny confirmation prompts instead of asking")
	flag.BoolVar(&opts.resume, "resume", false, "resume the most recent session")
	flag.BoolVar(&opts.listSessions, "list-sessions", false, "list saved sessions and exit")
	flag.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(context.Background(), opts); err != nil {
		log.Error("questor failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.maxTurns > 0 {
		cfg.Quest.MaxTurns = opts.maxTurns
	}

	workspace, err := filepath.Abs(opts.workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	if info, err := os.Stat(workspace); err != nil || !info.IsDir() {
		return fmt.Errorf("workspace %s is not a directory", workspace)
	}

	store, err := session.NewStore(filepath.Join(workspace, cfg.Session.Dir))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if opts.listSessions {
		return printSessions(store)
	}
	if opts.task == "" {
		return fmt.Errorf("a task is required: questor -task \"...\"")
	}

	var confirmer permission.Confirmer
	if !opts.nonInteractive {
		confirmer = ui.Confirmer{}
	}
	engine := permission.NewEngine(workspace, confirmer)
	if opts.preset != "" {
		if err := engine.SetPreset(opts.preset); err != nil {
			return err
		}
	}

	reg := registry.New(workspace, engine, cfg.Tools.ExecutionLogSize)
	tool.RegisterBuiltins(reg, cfg)
	for _, def := range extension.Load(filepath.Join(workspace, ".questor", "extensions")) {
		reg.Register(def)
	}

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}

	sess := session.NewManager()
	if opts.resume {
		sess = store.LoadMostRecent()
		log.Info("resumed session", "id", sess.SessionID, "entries", len(sess.Entries()))
	}

	orchestrator := quest.New(backend, reg, sess, quest.Options{
		MaxTurns:           cfg.Quest.MaxTurns,
		ContextTokenBudget: cfg.Session.ContextTokenBudget,
	})

	var res *quest.Result
	if opts.nonInteractive {
		// No confirmation prompts can appear, so a spinner is safe.
		res, _ = ui.Spin("questing...", func() (*quest.Result, error) {
			return orchestrator.Run(ctx, opts.task), nil
		})
	} else {
		res = orchestrator.Run(ctx, opts.task)
	}

	if path, err := store.Save(sess); err != nil {
		log.Warn("session not saved", "err", err)
	} else {
		log.Debug("session saved", "path", path)
	}

	printResult(res)
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

func newBackend(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	return gemini.New(ctx, apiKey, cfg.Provider.Model, cfg.Provider.Temperature, cfg.Provider.MaxOutputTokens)
}

func printSessions(store *session.Store) error {
	sessions, err := store.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no saved sessions")
		return nil
	}
	for _, info := range sessions {
		fmt.Printf("%s  %s  %s\n", info.SessionID, info.CreatedAt.Format("2006-01-02 15:04:05"), info.QuestTask)
	}
	return nil
}

func printResult(res *quest.Result) {
	fmt.Println()
	if res.Summary != "" {
		fmt.Println(ui.RenderMarkdown(res.Summary))
	}
	status := "failed"
	if res.Success {
		status = "complete"
	}
	fmt.Printf("quest %s: %s (%d iterations, %d effective turns, %s)\n",
		res.QuestID, status, res.Iterations, res.EffectiveTurns, res.Duration.Round(time.Millisecond))
	if len(res.FilesModified) > 0 {
		fmt.Println("files modified:")
		for _, path := range res.FilesModified {
			fmt.Printf("  %s\n", path)
		}
	}
	if res.Error != "" {
		fmt.Printf("error: %s\n", res.Error)
	}
}
