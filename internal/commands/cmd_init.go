package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// InitCmd implements the jari init command. The root command's Before hook
// has already opened the database by the time any Action runs, so init's
// only job is to report the location it opened successfully — opening it
// a second time here would fail to acquire Badger's directory lock.
type InitCmd struct {
	flags *Flags
}

func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Initialize the todo database",
		UsageText: "jari init",
		Description: `Creates the database directory (if missing) and opens it once to
verify it is writable.

Examples:
  jari init
  JARI_DB=/tmp/jari jari init`,
		Action: cmd.run,
	})
	return app
}

func (cmd *InitCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Store == nil {
		return cli.Exit("init: database was not opened", ExitStorageError)
	}
	fmt.Fprintf(c.Root().Writer, "initialized database at %s\n", cmd.flags.DataDir)
	return nil
}
