package commands

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/pkg/iojson"
)

// UpdateCmd implements jari update.
type UpdateCmd struct {
	flags *Flags

	title       string
	description string
	statusStr   string
	priorityStr string
	typ         string
	assignee    string
	parent      string
	reason      string
}

func NewUpdateCmd(flags *Flags) *UpdateCmd { return &UpdateCmd{flags: flags} }

func (cmd *UpdateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "update",
		Usage:     "Propose field changes to a todo",
		UsageText: "jari update <id> [--title t] [--description d] [-p priority] [--status s] [--type t] [--assignee a] [--parent id] [--reason r]",
		Description: `Applies field changes against the caller's last-seen (show) version of
the todo, three-way merging against whatever else has committed since.

Fields the caller changed that nobody else touched, and fields others
changed that the caller left alone, both auto-merge silently. A field
both sides changed keeps the value already present and records the
caller's proposal as a pending conflict; resolve it with "jari
resolve". The command exits with code 2 when conflicts were recorded
and no other field merged; when some fields merged, it exits 0 and the
conflicts are listed in its output.

Examples:
  jari update todo_1 -p 0
  jari --agent agent-b update todo_1 --status closed --reason "duplicate of todo_4"`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "new title", Destination: &cmd.title},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "new description", Destination: &cmd.description},
			&cli.StringFlag{Name: "status", Usage: "new status", Destination: &cmd.statusStr},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "new priority 0..4", Destination: &cmd.priorityStr},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "new type", Destination: &cmd.typ},
			&cli.StringFlag{Name: "assignee", Usage: "new assignee", Destination: &cmd.assignee},
			&cli.StringFlag{Name: "parent", Usage: "new parent id", Destination: &cmd.parent},
			&cli.StringFlag{Name: "reason", Usage: "note explaining the change", Destination: &cmd.reason},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *UpdateCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari update <id>", ExitUserError)
	}
	id := c.Args().Get(0)

	var changes model.Changes
	if c.IsSet("title") {
		changes.Title = &cmd.title
	}
	if c.IsSet("description") {
		changes.Description = &cmd.description
	}
	if c.IsSet("status") {
		s := model.Status(cmd.statusStr)
		changes.Status = &s
	}
	if c.IsSet("priority") {
		p, err := parsePriority(cmd.priorityStr)
		if err != nil {
			return cli.Exit(err.Error(), ExitUserError)
		}
		changes.Priority = &p
	}
	if c.IsSet("type") {
		changes.Type = &cmd.typ
	}
	if c.IsSet("assignee") {
		changes.Assignee = &cmd.assignee
	}
	if c.IsSet("parent") {
		changes.ParentID = &cmd.parent
	}
	if c.IsSet("reason") {
		changes.Reason = &cmd.reason
	}

	result, err := cmd.flags.Todos.Update(cmd.flags.Agent, id, changes)
	if err != nil {
		if errors.Is(err, model.ErrConflictPending) {
			if writeErr := iojson.WriteLineWith(c.Root().Writer, result); writeErr != nil {
				return writeErr
			}
		}
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, result)
}

// CloseCmd implements jari close.
type CloseCmd struct {
	flags  *Flags
	reason string
}

func NewCloseCmd(flags *Flags) *CloseCmd { return &CloseCmd{flags: flags} }

func (cmd *CloseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "close",
		Usage:     "Close a todo",
		UsageText: "jari close <id> [--reason r]",
		Description: `Sets a todo's status to closed. Does not touch any other todo's
blocked_by list — whether closing p unblocks c is a property of the
ready/blocked queues, not something close computes eagerly.

Examples:
  jari close todo_1
  jari close todo_1 --reason "duplicate"`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reason", Usage: "note explaining the closure", Destination: &cmd.reason},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *CloseCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari close <id>", ExitUserError)
	}
	t, err := cmd.flags.Todos.Close(cmd.flags.Agent, c.Args().Get(0), cmd.reason)
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

// ReopenCmd implements jari reopen.
type ReopenCmd struct{ flags *Flags }

func NewReopenCmd(flags *Flags) *ReopenCmd { return &ReopenCmd{flags: flags} }

func (cmd *ReopenCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "reopen",
		Usage:     "Reopen a closed todo",
		UsageText: "jari reopen <id>",
		Description: `Moves a closed todo back to status open. Fails if the todo is not
currently closed.

Examples:
  jari reopen todo_1`,
		Action: cmd.run,
	})
	return app
}

func (cmd *ReopenCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari reopen <id>", ExitUserError)
	}
	t, err := cmd.flags.Todos.Reopen(cmd.flags.Agent, c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

// DeleteCmd implements jari delete.
type DeleteCmd struct{ flags *Flags }

func NewDeleteCmd(flags *Flags) *DeleteCmd { return &DeleteCmd{flags: flags} }

func (cmd *DeleteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "delete",
		Usage:     "Delete a todo",
		UsageText: "jari delete <id>",
		Description: `Permanently removes a todo and every blocked_by edge pointing at or
from it. Other todos' parent_id fields that named it are left dangling
by design; show and list render a dangling parent_id as-is.

Examples:
  jari delete todo_1`,
		Action: cmd.run,
	})
	return app
}

func (cmd *DeleteCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari delete <id>", ExitUserError)
	}
	id := c.Args().Get(0)
	if err := cmd.flags.Todos.Delete(cmd.flags.Agent, id); err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	_, err := c.Root().Writer.Write([]byte("deleted " + id + "\n"))
	return err
}

// ClaimCmd implements jari claim.
type ClaimCmd struct{ flags *Flags }

func NewClaimCmd(flags *Flags) *ClaimCmd { return &ClaimCmd{flags: flags} }

func (cmd *ClaimCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "claim",
		Usage:     "Atomically claim a todo",
		UsageText: "jari claim <id>",
		Description: `Assigns the caller's agent as owner and transitions status to
in_progress, but only if the todo is unassigned or already assigned to
the caller, has no active blockers, and has status open or
in_progress. Exactly one concurrent
claimant wins; the rest receive AlreadyClaimed.

Examples:
  jari --agent agent-b claim todo_1`,
		Action: cmd.run,
	})
	return app
}

func (cmd *ClaimCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari claim <id>", ExitUserError)
	}
	t, err := cmd.flags.Todos.Claim(cmd.flags.Agent, c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}
