package commands

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/todosvc"
	"github.com/secemp9/jari/pkg/iojson"
)

// ExportCmd implements jari export: one JSON record per line, full field
// set, ascending by id, per spec.md §6's export format.
type ExportCmd struct {
	flags  *Flags
	output string
}

func NewExportCmd(flags *Flags) *ExportCmd { return &ExportCmd{flags: flags} }

func (cmd *ExportCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "export",
		Usage:     "Export every todo as one JSON record per line",
		UsageText: "jari export [--output path]",
		Description: `Writes every todo's full field set as a self-contained JSON line,
ordered ascending by id. Defaults to stdout.

Examples:
  jari export
  jari export --output backup.jsonl`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Usage: "file path to write to (defaults to stdout)", Destination: &cmd.output},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *ExportCmd) run(ctx context.Context, c *cli.Command) error {
	todos, err := cmd.flags.Todos.List(todosvc.Filter{})
	if err != nil {
		return cli.Exit(err.Error(), ExitCode(err))
	}

	w := c.Root().Writer
	if cmd.output != "" {
		f, err := os.Create(cmd.output)
		if err != nil {
			return cli.Exit(err.Error(), ExitStorageError)
		}
		defer f.Close()
		w = f
	}

	for _, t := range todos {
		if err := iojson.WriteLineWith(w, t); err != nil {
			return err
		}
	}
	return nil
}
