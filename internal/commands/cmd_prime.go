package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// PrimeCmd implements jari prime: prints a short orientation for an agent
// about to start working against a shared todo database, covering the
// commands it needs and the concurrency contract it must respect. Its own
// Action never touches flags.Store.
type PrimeCmd struct{ flags *Flags }

func NewPrimeCmd(flags *Flags) *PrimeCmd { return &PrimeCmd{flags: flags} }

func (cmd *PrimeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prime",
		Usage:     "Print an orientation primer for an agent new to this database",
		UsageText: "jari prime",
		Action:    cmd.run,
	})
	return app
}

const primerText = `You are one of several autonomous agents sharing a jari todo database.
Identify yourself with --agent (or $JARI_AGENT) on every command; jari
tracks per-agent read state to detect conflicting concurrent edits.

Typical loop:
  jari ready                 # what can be worked on right now
  jari show <id>              # read a todo, recording your base version
  jari claim <id>              # atomically take ownership; race-safe
  jari update <id> --status closed --reason "..."
  jari resolve <id> ACCEPT_YOURS|ACCEPT_THEIRS|MANUAL_MERGE

update never silently overwrites another agent's concurrent change to
the same field: if you and another agent both changed a field since
your last show, your write becomes a pending conflict (exit code 2)
until you resolve it. Changes to disjoint fields merge automatically.

Use "jari status --agent <you>" to see what you have claimed and what
conflicts are waiting on you, and "jari dep tree <id>" to see what is
blocking a todo before you claim it.
`

func (cmd *PrimeCmd) run(ctx context.Context, c *cli.Command) error {
	_, err := fmt.Fprint(c.Root().Writer, primerText)
	return err
}
