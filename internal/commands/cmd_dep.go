package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/graph"
	"github.com/secemp9/jari/pkg/iojson"
)

// DepCmd implements the jari dep add|remove|tree group.
type DepCmd struct {
	flags     *Flags
	direction string
}

func NewDepCmd(flags *Flags) *DepCmd { return &DepCmd{flags: flags} }

func (cmd *DepCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "dep",
		Usage: "Manage dependency (blocked_by) edges between todos",
		Description: `Adds or removes a "child is blocked by parent" edge, or renders the
dependency tree rooted at a todo.

Examples:
  jari dep add todo_2 todo_1     # todo_2 is blocked by todo_1
  jari dep remove todo_2 todo_1
  jari dep tree todo_1
  jari dep tree todo_1 --direction blocked`,
		Commands: []*cli.Command{cmd.addCmd(), cmd.removeCmd(), cmd.treeCmd()},
	})
	return app
}

func (cmd *DepCmd) addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a blocked_by edge",
		UsageText: "jari dep add <child> <parent>",
		Action:    cmd.runAdd,
	}
}

func (cmd *DepCmd) removeCmd() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove a blocked_by edge",
		UsageText: "jari dep remove <child> <parent>",
		Action:    cmd.runRemove,
	}
}

func (cmd *DepCmd) treeCmd() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Show the dependency tree rooted at a todo",
		UsageText: "jari dep tree <id> [--direction blockers|blocked]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "direction", Value: "blockers", Usage: "blockers (what it waits on) or blocked (what waits on it)", Destination: &cmd.direction},
		},
		Action: cmd.runTree,
	}
}

func (cmd *DepCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari dep add <child> <parent>", ExitUserError)
	}
	child, parent := c.Args().Get(0), c.Args().Get(1)
	if err := cmd.flags.Todos.AddDep(child, parent); err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	_, err := c.Root().Writer.Write([]byte("added\n"))
	return err
}

func (cmd *DepCmd) runRemove(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 2 {
		return cli.Exit("usage: jari dep remove <child> <parent>", ExitUserError)
	}
	child, parent := c.Args().Get(0), c.Args().Get(1)
	if err := cmd.flags.Todos.RemoveDep(child, parent); err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	_, err := c.Root().Writer.Write([]byte("removed\n"))
	return err
}

func (cmd *DepCmd) runTree(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari dep tree <id>", ExitUserError)
	}
	dir := graph.DirectionBlockers
	if cmd.direction == "blocked" {
		dir = graph.DirectionBlocked
	}
	node, err := cmd.flags.Todos.DepTree(c.Args().Get(0), dir)
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, node)
}
