package antlr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"g4build/internal/engine/build"
)

// fakeRunner answers by the grammar path following -Xexact-output-dir.
type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	fail    map[string]error
	calls   [][]string
}

func (f *fakeRunner) Run(_ context.Context, argv []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), argv...))

	src := ""
	for i, arg := range argv {
		if arg == "-Xexact-output-dir" && i+1 < len(argv) {
			src = argv[i+1]
		}
	}
	if err := f.fail[src]; err != nil {
		return "", err
	}
	return f.outputs[src], nil
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func newTestEnv(t *testing.T, runner build.Runner, opts ...build.Option) *build.Env {
	t.Helper()
	root := t.TempDir()
	opts = append(opts, build.WithRunner(runner), build.WithDetector(func(string) (string, error) {
		return "", errors.New("not found")
	}))
	env := build.NewEnv(root, opts...)
	Register(env, ToolPaths{Runtime: "/opt/jdk/bin/java", Jar: "/opt/antlr/antlr-complete.jar"})
	return env
}

func writeGrammar(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
