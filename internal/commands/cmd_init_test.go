package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/secemp9/jari/internal/core/store"
)

func TestInitReportsSuccessWithoutReopeningStore(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	flags := &Flags{DataDir: "/tmp/jari-test-db", Store: s}

	var out bytes.Buffer
	app := &cli.Command{Name: "jari", Writer: &out}
	app = NewInitCmd(flags).Register(app)

	require.NoError(t, app.Run(context.Background(), []string{"jari", "init"}))
	assert.Contains(t, out.String(), "/tmp/jari-test-db")
}

func TestInitFailsWhenStoreNeverOpened(t *testing.T) {
	flags := &Flags{DataDir: "/tmp/jari-test-db"}

	var out bytes.Buffer
	app := &cli.Command{Name: "jari", Writer: &out}
	app = NewInitCmd(flags).Register(app)

	err := app.Run(context.Background(), []string{"jari", "init"})
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitStorageError, exitErr.ExitCode())
}
