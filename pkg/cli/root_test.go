package cli

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout runs fn with os.Stdout redirected and returns what it printed
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := fn()

	w.Close()
	os.Stdout = oldStdout
	return <-done, runErr
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	os.Args = args
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	assert.Equal(t, "hawkcurl", root.Name)
	assert.NotNil(t, root.Flags)

	for _, name := range []string{"request", "sign", "check-credentials"} {
		assert.Contains(t, root.Subcommands, name)
	}
	assert.Len(t, root.Subcommands, 3)
}

func TestCommandExecute_Usage(t *testing.T) {
	for _, args := range [][]string{{"hawkcurl"}, {"hawkcurl", "-h"}, {"hawkcurl", "--HELP"}} {
		withArgs(t, args...)
		output, err := captureStdout(t, NewRootCommand().Execute)
		require.NoError(t, err)
		assert.Contains(t, output, "Usage: hawkcurl <command> [args]")
		assert.Contains(t, output, "check-credentials")
	}
}

func TestCommandExecute_Subcommand(t *testing.T) {
	root := NewRootCommand()

	var received []string
	root.Subcommands["test"] = &Command{
		Name: "test",
		Run: func(args []string) error {
			received = args
			return nil
		},
	}

	withArgs(t, "hawkcurl", "test", "arg1", "-flag")
	require.NoError(t, root.Execute())
	assert.Equal(t, []string{"arg1", "-flag"}, received)
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	withArgs(t, "hawkcurl", "nonexistent")

	err := NewRootCommand().Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}
