package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/model"
	"github.com/secemp9/jari/internal/core/todosvc"
	"github.com/secemp9/jari/pkg/iojson"
)

// createBatchInput is the --file/--stdin schema for jari create: a named
// array of the same fields the single-todo form accepts as flags.
type createBatchInput struct {
	Todos []todosvc.CreateInput `json:"todos"`
}

// createBatchResult reports one batch entry's outcome, so a single bad
// entry doesn't stop the rest of the batch from being created.
type createBatchResult struct {
	Title string `json:"title"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// CreateCmd implements jari create.
type CreateCmd struct {
	flags *Flags
	fr    *iojson.FileReader[createBatchInput]

	description string
	priorityStr string
	typ         string
	parent      string
	niwaRef     string
	stdin       bool
}

func NewCreateCmd(flags *Flags) *CreateCmd {
	return &CreateCmd{flags: flags, fr: &iojson.FileReader[createBatchInput]{}}
}

func (cmd *CreateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "create",
		Usage:     "Create a new todo, or a batch of todos from JSON",
		UsageText: "jari create <title> [-p priority] [-d description] [-t type] [--parent id] [--niwa-ref ref]\n   jari create --file todos.json\n   jari create --stdin < todos.json",
		Description: `Creates a new todo at version 1 with status open.

Given --file or --stdin instead of a title, reads a JSON object of the
form {"todos": [{"title": "...", "priority": 1, ...}, ...]} and creates
each entry in order, reporting one result per line.

Examples:
  jari create "fix the parser" -p 1
  jari create "write docs" -t chore --parent todo_1
  jari create --file todos.json
  echo '{"todos":[{"title":"a"},{"title":"b"}]}' | jari create --stdin`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "priority 0 (critical) .. 4 (backlog), default 2", Destination: &cmd.priorityStr},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "free-form description", Destination: &cmd.description},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "caller-defined todo type", Destination: &cmd.typ},
			&cli.StringFlag{Name: "parent", Usage: "parent todo id", Destination: &cmd.parent},
			&cli.StringFlag{Name: "niwa-ref", Usage: "initial external reference to attach", Destination: &cmd.niwaRef},
			cmd.fr.Flag(),
			&cli.BoolFlag{Name: "stdin", Usage: "read a JSON todo batch from stdin", Destination: &cmd.stdin},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *CreateCmd) run(ctx context.Context, c *cli.Command) error {
	if c.IsSet("file") || cmd.stdin {
		return cmd.runBatch(c)
	}
	if c.NArg() < 1 {
		return cli.Exit("usage: jari create <title>", ExitUserError)
	}
	title := c.Args().Get(0)

	in := todosvc.CreateInput{Title: title, Description: cmd.description, Type: cmd.typ, ParentID: cmd.parent, NiwaRef: cmd.niwaRef}
	if cmd.priorityStr != "" {
		p, err := parsePriority(cmd.priorityStr)
		if err != nil {
			return cli.Exit(err.Error(), ExitUserError)
		}
		in.Priority = &p
	}

	t, err := cmd.flags.Todos.Create(cmd.flags.Agent, in)
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, t)
}

func (cmd *CreateCmd) runBatch(c *cli.Command) error {
	batch, err := cmd.fr.Read()
	if err != nil {
		return cli.Exit(fmt.Sprintf("create: %v", err), ExitUserError)
	}
	if len(batch.Todos) == 0 {
		return cli.Exit("create: batch input has no todos", ExitUserError)
	}

	out := c.Root().Writer
	for _, in := range batch.Todos {
		result := createBatchResult{Title: in.Title}
		t, err := cmd.flags.Todos.Create(cmd.flags.Agent, in)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.ID = t.ID
		}
		if writeErr := iojson.WriteLineWith(out, result); writeErr != nil {
			return writeErr
		}
	}
	return nil
}

func parsePriority(s string) (int, error) {
	var p int
	if _, err := fmt.Sscanf(s, "%d", &p); err != nil {
		return 0, fmt.Errorf("invalid priority %q: must be an integer in [%d,%d]", s, model.MinPriority, model.MaxPriority)
	}
	if p < model.MinPriority || p > model.MaxPriority {
		return 0, fmt.Errorf("priority %d out of range [%d,%d]", p, model.MinPriority, model.MaxPriority)
	}
	return p, nil
}

// ShowCmd implements jari show.
type ShowCmd struct{ flags *Flags }

func NewShowCmd(flags *Flags) *ShowCmd { return &ShowCmd{flags: flags} }

func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show a todo, recording a pending-read version for its agent",
		UsageText: "jari show <id>",
		Description: `Loads a todo and its active blockers.

Also records the caller's agent as having read the record at its current
version, which becomes the base version for a subsequent update's
three-way merge.

Examples:
  jari show todo_1
  jari --agent agent-b show todo_1`,
		Action: cmd.run,
	})
	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: jari show <id>", ExitUserError)
	}
	result, err := cmd.flags.Todos.Show(cmd.flags.Agent, c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}
	return iojson.WriteLineWith(c.Root().Writer, result)
}

// ListCmd implements jari list.
type ListCmd struct {
	flags *Flags

	status   string
	assignee string
	label    string
	typ      string
	parent   string
}

func NewListCmd(flags *Flags) *ListCmd { return &ListCmd{flags: flags} }

func (cmd *ListCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "list",
		Usage:     "List todos, optionally filtered",
		UsageText: "jari list [--status s] [--assignee a] [--label l] [--type t] [--parent id]",
		Description: `Lists every todo matching the given filters as JSON lines, ordered by id.

Examples:
  jari list
  jari list --status open
  jari list --assignee agent-b --label urgent`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Usage: "filter by status", Destination: &cmd.status},
			&cli.StringFlag{Name: "assignee", Usage: "filter by assignee", Destination: &cmd.assignee},
			&cli.StringFlag{Name: "label", Usage: "filter by label", Destination: &cmd.label},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "filter by type", Destination: &cmd.typ},
			&cli.StringFlag{Name: "parent", Usage: "filter by parent id", Destination: &cmd.parent},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ListCmd) run(ctx context.Context, c *cli.Command) error {
	filter := todosvc.Filter{
		Status:   model.Status(cmd.status),
		Assignee: cmd.assignee,
		Label:    cmd.label,
		Type:     cmd.typ,
		ParentID: cmd.parent,
	}
	todos, err := cmd.flags.Todos.List(filter)
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
