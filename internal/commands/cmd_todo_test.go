package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/query"
	"github.com/secemp9/jari/internal/core/store"
	"github.com/secemp9/jari/internal/core/todosvc"
)

func TestParsePriorityValid(t *testing.T) {
	p, err := parsePriority("1")
	require.NoError(t, err)
	assert.Equal(t, 1, p)
}

func TestParsePriorityRejectsNonInteger(t *testing.T) {
	_, err := parsePriority("urgent")
	assert.Error(t, err)
}

func TestParsePriorityRejectsOutOfRange(t *testing.T) {
	_, err := parsePriority("99")
	assert.Error(t, err)
}

// newTestApp wires a root command the same way main.go does, but against an
// in-memory store and with no Before/After hooks, so tests can drive create,
// show and list without touching disk or the process environment.
func newTestApp(t *testing.T) (*cli.Command, *bytes.Buffer) {
	t.Helper()
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	flags := &Flags{
		Agent: "agent-a",
		Store: s,
		Todos: todosvc.NewWithClock(s, func() time.Time { return clock }),
		Query: query.New(s),
	}

	var out bytes.Buffer
	app := &cli.Command{Name: "jari", Writer: &out}
	app = NewCreateCmd(flags).Register(app)
	app = NewShowCmd(flags).Register(app)
	app = NewListCmd(flags).Register(app)
	app = NewUpdateCmd(flags).Register(app)

	return app, &out
}

func TestCreateShowListRoundTrip(t *testing.T) {
	app, out := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Run(ctx, []string{"jari", "create", "fix the parser", "-p", "1"}))

	var created map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &created))
	id := created["id"].(string)
	assert.Equal(t, "fix the parser", created["title"])
	out.Reset()

	require.NoError(t, app.Run(ctx, []string{"jari", "show", id}))
	var shown struct {
		Todo           map[string]any
		ActiveBlockers []string
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &shown))
	assert.Equal(t, id, shown.Todo["id"])
	out.Reset()

	require.NoError(t, app.Run(ctx, []string{"jari", "list"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
}

func TestCreateRequiresTitle(t *testing.T) {
	app, _ := newTestApp(t)
	err := app.Run(context.Background(), []string{"jari", "create"})
	assert.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUserError, exitErr.ExitCode())
}

func TestShowUnknownIDIsUserError(t *testing.T) {
	app, _ := newTestApp(t)
	err := app.Run(context.Background(), []string{"jari", "show", "todo_999"})
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitUserError, exitErr.ExitCode())
}

// appForAgent builds a second CLI front end sharing the same store and
// services as an existing app's Flags, but attributed to a different agent
// — the shape two concurrent agent processes take against one database.
func appForAgent(t *testing.T, flags *Flags, agent string) (*cli.Command, *bytes.Buffer) {
	t.Helper()
	other := &Flags{Agent: agent, Store: flags.Store, Todos: flags.Todos, Query: flags.Query}
	var out bytes.Buffer
	app := &cli.Command{Name: "jari", Writer: &out}
	app = NewShowCmd(other).Register(app)
	app = NewUpdateCmd(other).Register(app)
	return app, &out
}

func TestUpdateSameFieldConflictReportsPendingAndExitsWithConflictCode(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sharedFlags := &Flags{
		Agent: "agent-a",
		Store: s,
		Todos: todosvc.NewWithClock(s, func() time.Time { return clock }),
		Query: query.New(s),
	}

	todo, err := sharedFlags.Todos.Create("agent-a", todosvc.CreateInput{Title: "shared work"})
	require.NoError(t, err)

	appA, _ := appForAgent(t, sharedFlags, "agent-a")
	appB, outB := appForAgent(t, sharedFlags, "agent-b")
	ctx := context.Background()

	// Both agents read the same base version before either commits.
	require.NoError(t, appA.Run(ctx, []string{"jari", "show", todo.ID}))
	require.NoError(t, appB.Run(ctx, []string{"jari", "show", todo.ID}))

	require.NoError(t, appA.Run(ctx, []string{"jari", "update", todo.ID, "--title", "agent-a's title"}))

	err = appB.Run(ctx, []string{"jari", "update", todo.ID, "--title", "agent-b's title"})
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitConflictPending, exitErr.ExitCode())

	// The conflicting update still emits its Result (with the pending
	// conflict list) as a JSON line before the error is returned.
	var result struct {
		Conflicts []map[string]any
	}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(outB.Bytes()), &result))
	assert.NotEmpty(t, result.Conflicts)
}
