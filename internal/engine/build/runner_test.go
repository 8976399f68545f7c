package build

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), []string{"sh", "-c", "echo 'FooParser.java : Foo.g4'; echo noise >&2"})
	require.NoError(t, err)
	assert.Equal(t, "FooParser.java : Foo.g4\n", out)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	_, err := ExecRunner{}.Run(context.Background(), []string{"sh", "-c", "echo 'error(2): cannot find grammar' >&2; exit 3"})
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, 3, runErr.ExitCode)
	assert.Contains(t, err.Error(), "cannot find grammar")
}

func TestExecRunner_LaunchFailure(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), []string{"/nonexistent/antlr4-binary"})
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, -1, runErr.ExitCode)
}

func TestExecRunner_EmptyCommand(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestExecRunner_Dir(t *testing.T) {
	requireShell(t)

	dir := t.TempDir()
	out, err := ExecRunner{Dir: dir}.Run(context.Background(), []string{"sh", "-c", "pwd -P"})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
