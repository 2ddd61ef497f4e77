package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/todosvc"
	"github.com/secemp9/jari/pkg/iojson"
)

// LabelCmd implements the jari label add|remove group.
type LabelCmd struct{ flags *Flags }

func NewLabelCmd(flags *Flags) *LabelCmd { return &LabelCmd{flags: flags} }

func (cmd *LabelCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "label",
		Usage: "Add or remove a label on a todo",
		Description: `Labels are idempotent: adding a label already present, or removing one
already absent, is a no-op that does not bump the todo's version.

Examples:
  jari label add todo_1 urgent
  jari label remove todo_1 urgent`,
		Commands: []*cli.Command{
			{Name: "add", Usage: "Add a label", UsageText: "jari label add <id> <label>", Action: cmd.runAdd},
			{Name: "remove", Usage: "Remove a label", UsageText: "jari label remove <id> <label>", Action: cmd.runRemove},
		},
	})
	return app
}

func (cmd *LabelCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari label add <id> <label>", ExitUserError)
	}
	t, err := cmd.flags.Todos.AddLabel(cmd.flags.Agent, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

func (cmd *LabelCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari label remove <id> <label>", ExitUserError)
	}
	t, err := cmd.flags.Todos.RemoveLabel(cmd.flags.Agent, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

// LinkCmd implements jari link.
type LinkCmd struct{ flags *Flags }

func NewLinkCmd(flags *Flags) *LinkCmd { return &LinkCmd{flags: flags} }

func (cmd *LinkCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "link",
		Usage:     "Attach an external reference to a todo",
		UsageText: "jari link <id> <ref>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *LinkCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari link <id> <ref>", ExitUserError)
	}
	t, err := cmd.flags.Todos.Link(cmd.flags.Agent, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

// UnlinkCmd implements jari unlink.
type UnlinkCmd struct{ flags *Flags }

func NewUnlinkCmd(flags *Flags) *UnlinkCmd { return &UnlinkCmd{flags: flags} }

func (cmd *UnlinkCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "unlink",
		Usage:     "Remove an external reference from a todo",
		UsageText: "jari unlink <id> <ref>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *UnlinkCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari unlink <id> <ref>", ExitUserError)
	}
	t, err := cmd.flags.Todos.Unlink(cmd.flags.Agent, c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

// LinkedCmd implements jari linked: reports which todos reference a given
// external ref, since niwa_refs is stored per-todo with no reverse index.
type LinkedCmd struct{ flags *Flags }

func NewLinkedCmd(flags *Flags) *LinkedCmd { return &LinkedCmd{flags: flags} }

func (cmd *LinkedCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "linked",
		Usage:     "List todos referencing an external ref",
		UsageText: "jari linked <ref>",
		Action:    cmd.run,
	})
	return app
}

func (cmd *LinkedCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari linked <ref>", ExitUserError)
	}
	ref := c.Args().Get(0)
	todos, err := cmd.flags.Todos.List(todosvc.Filter{})
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	out := c.Root().Writer
	for _, t := range todos {
		for _, r := range t.NiwaRefs {
			if r == ref {
				if err := iojson.WriteLineWith(out, t); err != nil {
					return err
				}
				break
			}
		}
	}
	return nil
}
