package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/commands"
	"github.com/secemp9/jari/internal/config"
	"github.com/secemp9/jari/internal/core/query"
	"github.com/secemp9/jari/internal/core/store"
	"github.com/secemp9/jari/internal/core/todosvc"
	"github.com/secemp9/jari/internal/logging"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()
	var gcStop func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "jari",
		Usage:     "A shared todo tracker for concurrent autonomous agents",
		UsageText: "jari [global options] command [command options]",
		Description: `Jari is an embedded, single-binary todo tracker built for several
autonomous agents to read and write the same database concurrently
without stepping on each other: field-level optimistic concurrency
auto-merges disjoint changes and surfaces real conflicts for an agent to
resolve, instead of last-writer-wins.

Run 'jari prime' for an orientation, or 'jari --help' for the full
command list.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal)",
				Sources:     cli.EnvVars("JARI_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/jari.log)",
				Sources:     cli.EnvVars("JARI_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("JARI_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to database directory",
				Sources:     cli.EnvVars("JARI_DB"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "agent",
				Usage:       "the calling agent's name, used for pending-read tracking and audit trails",
				Sources:     cli.EnvVars("JARI_AGENT"),
				Value:       commands.DefaultAgent(),
				Destination: &flags.Agent,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "jari.log")
			}

			logger, closer, err := logging.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			// Explicit --data-dir/--agent flags (or their env vars) win over
			// the config file; only fall back to it when the flag is still at
			// its own computed default.
			if flags.DataDir == commands.DefaultDataDir() && cfg.DataDir != "" {
				flags.DataDir = cfg.DataDir
			}
			if flags.Agent == commands.DefaultAgent() && cfg.DefaultAgent != "" {
				flags.Agent = cfg.DefaultAgent
			}
			flags.Config = cfg

			s, err := store.Open(store.Options{Path: flags.DataDir, SyncWrites: cfg.SyncWrites, Logger: logger})
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}
			flags.Store = s
			flags.Todos = todosvc.New(s)
			flags.Todos.SetDefaultPriority(cfg.DefaultPriority)
			flags.Query = query.New(s)

			gcInterval, err := cfg.GCIntervalDuration()
			if err != nil {
				return ctx, fmt.Errorf("gc_interval: %w", err)
			}
			gcStop = s.StartGC(gcInterval, cfg.GCRatio, logger)

			ctx = logging.WithAgentID(ctx, flags.Agent)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if gcStop != nil {
				gcStop()
			}
			if flags.Store != nil {
				if err := flags.Store.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewInitCmd(flags).Register(app)
	app = commands.NewCreateCmd(flags).Register(app)
	app = commands.NewShowCmd(flags).Register(app)
	app = commands.NewListCmd(flags).Register(app)
	app = commands.NewSearchCmd(flags).Register(app)
	app = commands.NewReadyCmd(flags).Register(app)
	app = commands.NewBlockedCmd(flags).Register(app)
	app = commands.NewClaimCmd(flags).Register(app)
	app = commands.NewUpdateCmd(flags).Register(app)
	app = commands.NewCloseCmd(flags).Register(app)
	app = commands.NewReopenCmd(flags).Register(app)
	app = commands.NewDeleteCmd(flags).Register(app)
	app = commands.NewDepCmd(flags).Register(app)
	app = commands.NewLabelCmd(flags).Register(app)
	app = commands.NewLinkCmd(flags).Register(app)
	app = commands.NewUnlinkCmd(flags).Register(app)
	app = commands.NewLinkedCmd(flags).Register(app)
	app = commands.NewStatusCmd(flags).Register(app)
	app = commands.NewConflictsCmd(flags).Register(app)
	app = commands.NewAgentsCmd(flags).Register(app)
	app = commands.NewHistoryCmd(flags).Register(app)
	app = commands.NewExportCmd(flags).Register(app)
	app = commands.NewResolveCmd(flags).Register(app)
	app = commands.NewPrimeCmd(flags).Register(app)

	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr.Error())
		var exitErr cli.ExitCoder
		if errors.As(runErr, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(commands.ExitStorageError)
	}
}
