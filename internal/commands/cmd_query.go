package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/pkg/iojson"
)

// parseOverrides turns "field=value" flag values into the map
// todosvc.Resolve's MANUAL_MERGE strategy expects.
func parseOverrides(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(raw))
	for _, kv := range raw {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: expected field=value", kv)
		}
		overrides[field] = value
	}
	return overrides, nil
}

// SearchCmd implements jari search.
type SearchCmd struct{ flags *Flags }

func NewSearchCmd(flags *Flags) *SearchCmd { return &SearchCmd{flags: flags} }

func (cmd *SearchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "search",
		Usage:     "Case-insensitive substring search over title, description, and labels",
		UsageText: "jari search <query>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *SearchCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari search <query>", ExitUserError)
	}
	matches, err := cmd.flags.Query.Search(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, t := range matches {
		if err := iojson.WriteLineWith(out, t); err != nil {
			return err
		}
	}
	return nil
}

// ReadyCmd implements jari ready.
type ReadyCmd struct{ flags *Flags }

func NewReadyCmd(flags *Flags) *ReadyCmd { return &ReadyCmd{flags: flags} }

func (cmd *ReadyCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "ready",
		Usage: "List workable todos with no active blockers",
		Description: `Todos with status open or in_progress and zero active (not closed)
blockers, ordered by priority ascending, then created_at ascending,
then id ascending.

Examples:
  jari ready`,
		Action: cmd.run,
	})
	return app
}

func (cmd *ReadyCmd) run(ctx context.Context, c *cli.Command) error {
	todos, err := cmd.flags.Query.Ready()
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, t := range todos {
		if err := iojson.WriteLineWith(out, t); err != nil {
			return err
		}
	}
	return nil
}

// BlockedCmd implements jari blocked.
type BlockedCmd struct{ flags *Flags }

func NewBlockedCmd(flags *Flags) *BlockedCmd { return &BlockedCmd{flags: flags} }

func (cmd *BlockedCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "blocked",
		Usage: "List workable todos with active blockers, and what is blocking them",
		Description: `The complement of "jari ready" within status ∈ {open, in_progress}: a
todo appears here exactly when it is workable but has at least one
active (not closed) blocker.

Examples:
  jari blocked`,
		Action: cmd.run,
	})
	return app
}

func (cmd *BlockedCmd) run(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.flags.Query.Blocked()
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, e := range entries {
		if err := iojson.WriteLineWith(out, e); err != nil {
			return err
		}
	}
	return nil
}

// HistoryCmd implements jari history.
type HistoryCmd struct{ flags *Flags }

func NewHistoryCmd(flags *Flags) *HistoryCmd { return &HistoryCmd{flags: flags} }

func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "List every recorded version of a todo, oldest first",
		UsageText: "jari history <id>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari history <id>", ExitUserError)
	}
	entries, err := cmd.flags.Query.History(c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, e := range entries {
		if err := iojson.WriteLineWith(out, e); err != nil {
			return err
		}
	}
	return nil
}

// StatusCmd implements jari status: per-agent standing (assigned todos,
// pending conflicts, recent history).
type StatusCmd struct {
	flags *Flags
	agent string
	n     int
}

func NewStatusCmd(flags *Flags) *StatusCmd { return &StatusCmd{flags: flags} }

func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Report an agent's assigned todos, pending conflicts, and recent history",
		UsageText: "jari status [--agent a] [-n count]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Usage: "agent to report on (defaults to the caller's agent)", Destination: &cmd.agent},
			&cli.IntFlag{Name: "n", Value: 20, Usage: "number of recent history entries to include", Destination: &cmd.n},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	agent := cmd.agent
	if agent == "" {
		agent = cmd.flags.Agent
	}
	status, err := cmd.flags.Query.Agent(agent, cmd.n)
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, status)
}

// AgentsCmd implements jari agents: every agent in the agent registry
// (query.KnownAgents), each reported with its full AgentStatus. Only
// show, claim, update and resolve write registry entries; an agent that
// has only created, closed, labeled or linked todos is not listed.
type AgentsCmd struct{ flags *Flags }

func NewAgentsCmd(flags *Flags) *AgentsCmd { return &AgentsCmd{flags: flags} }

func (cmd *AgentsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "agents",
		Usage:     "List every agent that has shown, claimed, updated or resolved a todo",
		UsageText: "jari agents",
		Action:    cmd.run,
	})
	return app
}

func (cmd *AgentsCmd) run(ctx context.Context, c *cli.Command) error {
	names, err := cmd.flags.Query.KnownAgents()
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, name := range names {
		status, err := cmd.flags.Query.Agent(name, 0)
		if err != nil {
			return cli.Exit(err.Error(), ExitCode(err))
		}
		if err := iojson.WriteLineWith(out, status); err != nil {
			return err
		}
	}
	return nil
}

// ConflictsCmd implements jari conflicts: every pending conflict across
// every todo, grouped by todo id when no --agent filter narrows it.
type ConflictsCmd struct {
	flags *Flags
	agent string
}

func NewConflictsCmd(flags *Flags) *ConflictsCmd { return &ConflictsCmd{flags: flags} }

func (cmd *ConflictsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "conflicts",
		Usage:     "List pending conflicts, optionally filtered by agent",
		UsageText: "jari conflicts [--agent a]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Usage: "only conflicts raised by this agent", Destination: &cmd.agent},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ConflictsCmd) run(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.flags.Query.Conflicts(cmd.agent)
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, e := range entries {
		if err := iojson.WriteLineWith(out, e); err != nil {
			return err
		}
	}
	return nil
}

// ResolveCmd implements jari resolve.
type ResolveCmd struct {
	flags     *Flags
	overrides []string
}

func NewResolveCmd(flags *Flags) *ResolveCmd { return &ResolveCmd{flags: flags} }

func (cmd *ResolveCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve pending conflicts on a todo",
		UsageText: "jari resolve <id> <ACCEPT_YOURS|ACCEPT_THEIRS|MANUAL_MERGE> [--set field=value ...]",
		Description: `Settles every pending conflict on a todo. ACCEPT_YOURS applies the
resolving agent's proposed values; ACCEPT_THEIRS keeps the already
committed values; MANUAL_MERGE takes at least one --set field=value,
each naming a conflicting field, and conflicting fields without an
override keep their committed value. Every strategy clears the pending
conflicts and records a new version of the todo.

Examples:
  jari --agent agent-b resolve todo_1 ACCEPT_YOURS
  jari resolve todo_1 MANUAL_MERGE --set priority=1`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "set", Usage: "field=value override, for MANUAL_MERGE", Destination: &cmd.overrides},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ResolveCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari resolve <id> <strategy>", ExitUserError)
	}
	overrides, err := parseOverrides(cmd.overrides)
	if err != nil {
		return cli.Exit(err.Error(), ExitUserError)
	}
	strategy := model.ResolveStrategy(c.Args().Get(1))
	if !strategy.Valid() {
		return cli.Exit("invalid strategy: must be ACCEPT_YOURS, ACCEPT_THEIRS, or MANUAL_MERGE", ExitUserError)
	}
	t, err := cmd.flags.Todos.Resolve(cmd.flags.Agent, c.Args().Get(0), strategy, overrides)
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}
