package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	g4errors "g4build/internal/core/errors"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recordingRunner) Run(_ context.Context, argv []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, argv)
	return "", r.err
}

type argvCommand []string

func (c argvCommand) Argv() []string  { return c }
func (c argvCommand) String() string { return strings.Join(c, " ") }

// lineScanner treats every "use X" line as a dependency on sibling X.txt.
func lineScanner(node Node, _ *Env, _ []string) ([]Node, error) {
	text, err := node.Text()
	if err != nil {
		return nil, err
	}
	var deps []Node
	for _, line := range strings.Split(text, "\n") {
		if name, ok := strings.CutPrefix(line, "use "); ok {
			deps = append(deps, node.SrcNode().File(name+".txt"))
		}
	}
	return deps, nil
}

func newExecEnv(t *testing.T, runner Runner, emitter EmitterFunc) *Env {
	t.Helper()
	env := NewEnv(t.TempDir(), WithRunner(runner))
	env.AddScanner(Scanner{Name: "txt", Suffixes: []string{".txt"}, Func: lineScanner})
	env.AddBuilder(Builder{
		Name:      "Copy",
		SrcSuffix: ".txt",
		Emitter:   emitter,
		Generator: func(sources, _ []Node, _ *Env, _ bool) ([]Command, error) {
			cmds := make([]Command, 0, len(sources))
			for _, src := range sources {
				cmds = append(cmds, argvCommand{"cp", src.Path()})
			}
			return cmds, nil
		},
	})
	return env
}

func write(t *testing.T, env *Env, name, content string) string {
	t.Helper()
	path := env.File(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecutor_ScanIsRecursive(t *testing.T) {
	env := newExecEnv(t, &recordingRunner{}, nil)
	a := write(t, env, "A.txt", "use B\nuse C\nuse B\n")
	b := write(t, env, "B.txt", "use D\n")
	c := write(t, env, "C.txt", "")
	d := write(t, env, "D.txt", "")

	deps, imports, err := NewExecutor(env).Scan(context.Background(), []Node{env.Node(a)})
	require.NoError(t, err)

	assert.Equal(t, []string{b, c, d}, Paths(deps[a]))
	assert.Equal(t, []string{b, c}, imports.Imports(a))
	assert.Equal(t, []string{d}, imports.Imports(b))
}

func TestExecutor_ScanToleratesCycles(t *testing.T) {
	env := newExecEnv(t, &recordingRunner{}, nil)
	a := write(t, env, "A.txt", "use B\n")
	b := write(t, env, "B.txt", "use A\n")

	plan, err := NewExecutor(env).Plan(context.Background(), "Copy", []Node{env.Node(a)})
	require.NoError(t, err)
	assert.Equal(t, []string{b, a}, Paths(plan.Deps[a]))
	require.Len(t, plan.Cycles, 1)
	assert.Equal(t, []string{a, b}, plan.Cycles[0])
}

func TestExecutor_PlanDefaultTargets(t *testing.T) {
	env := newExecEnv(t, &recordingRunner{}, nil)
	a := write(t, env, "A.txt", "")

	plan, err := NewExecutor(env).Plan(context.Background(), "Copy", []Node{env.Node(a)})
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimSuffix(a, ".txt")}, Paths(plan.Targets))
}

func TestExecutor_PlanUsesEmitter(t *testing.T) {
	var seen []string
	emitter := func(_ context.Context, targets, sources []Node, _ *Env) ([]Node, []Node, error) {
		seen = Paths(targets)
		return []Node{NewNode("out/A.copy")}, sources, nil
	}
	env := newExecEnv(t, &recordingRunner{}, emitter)
	a := write(t, env, "A.txt", "")

	plan, err := NewExecutor(env).Plan(context.Background(), "Copy", []Node{env.Node(a)})
	require.NoError(t, err)
	assert.Equal(t, []string{strings.TrimSuffix(a, ".txt")}, seen, "emitter receives the guessed targets")
	assert.Equal(t, []string{"out/A.copy"}, Paths(plan.Targets))
}

func TestExecutor_PlanEmitterError(t *testing.T) {
	emitter := func(context.Context, []Node, []Node, *Env) ([]Node, []Node, error) {
		return nil, nil, g4errors.New(g4errors.CodeToolFailed, "depend failed")
	}
	env := newExecEnv(t, &recordingRunner{}, emitter)
	a := write(t, env, "A.txt", "")

	plan, err := NewExecutor(env).Plan(context.Background(), "Copy", []Node{env.Node(a)})
	require.Error(t, err)
	assert.Nil(t, plan)
	assert.True(t, g4errors.IsCode(err, g4errors.CodeToolFailed))
}

func TestExecutor_PlanValidation(t *testing.T) {
	env := newExecEnv(t, &recordingRunner{}, nil)
	x := NewExecutor(env)

	_, err := x.Plan(context.Background(), "Nope", []Node{env.Node("A.txt")})
	assert.True(t, g4errors.IsCode(err, g4errors.CodeValidationError))

	_, err = x.Plan(context.Background(), "Copy", nil)
	assert.True(t, g4errors.IsCode(err, g4errors.CodeValidationError))

	_, err = x.Plan(context.Background(), "Copy", []Node{env.Node("A.md")})
	assert.True(t, g4errors.IsCode(err, g4errors.CodeValidationError))
}

func TestExecutor_PlanMissingSourceIsNotFound(t *testing.T) {
	env := newExecEnv(t, &recordingRunner{}, nil)

	_, err := NewExecutor(env).Plan(context.Background(), "Copy", []Node{env.Node("Missing.txt")})
	require.Error(t, err)
	assert.True(t, g4errors.IsCode(err, g4errors.CodeNotFound))
}

func TestExecutor_ExecuteRunsOneCommandPerSource(t *testing.T) {
	runner := &recordingRunner{}
	env := newExecEnv(t, runner, nil)
	a := write(t, env, "A.txt", "")
	b := write(t, env, "B.txt", "")

	x := NewExecutor(env)
	plan, err := x.Plan(context.Background(), "Copy", []Node{env.Node(a), env.Node(b)})
	require.NoError(t, err)

	result, err := x.Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"cp", a}, {"cp", b}}, runner.calls)
	assert.Equal(t, []string{"cp " + a, "cp " + b}, result.Commands)
}

func TestExecutor_CommandsDoesNotRun(t *testing.T) {
	runner := &recordingRunner{}
	env := newExecEnv(t, runner, nil)
	a := write(t, env, "A.txt", "")

	x := NewExecutor(env)
	plan, err := x.Plan(context.Background(), "Copy", []Node{env.Node(a)})
	require.NoError(t, err)

	cmds, err := x.Commands(plan)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"cp", a}, cmds[0].Argv())
	assert.Empty(t, runner.calls)

	_, err = x.Commands(&Plan{Builder: "Nope"})
	assert.True(t, g4errors.IsCode(err, g4errors.CodeValidationError))
}

func TestExecutor_ExecuteMissingDependency(t *testing.T) {
	runner := &recordingRunner{}
	env := newExecEnv(t, runner, nil)
	a := write(t, env, "A.txt", "use Phantom\n")

	x := NewExecutor(env)
	plan, err := x.Plan(context.Background(), "Copy", []Node{env.Node(a)})
	require.NoError(t, err, "missing imports are not detected while scanning")

	_, err = x.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, g4errors.IsCode(err, g4errors.CodeNotFound))
	assert.Contains(t, err.Error(), "Phantom.txt")
	assert.Empty(t, runner.calls, "nothing runs when an input is missing")
}

func TestExecutor_ExecuteStopsAtFirstFailure(t *testing.T) {
	runner := &recordingRunner{err: errors.New("exit status 1")}
	env := newExecEnv(t, runner, nil)
	a := write(t, env, "A.txt", "")
	b := write(t, env, "B.txt", "")

	x := NewExecutor(env)
	plan, err := x.Plan(context.Background(), "Copy", []Node{env.Node(a), env.Node(b)})
	require.NoError(t, err)

	_, err = x.Execute(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, g4errors.IsCode(err, g4errors.CodeToolFailed))
	assert.Len(t, runner.calls, 1)
}

func TestExecutor_PlanMaterializesVariantSources(t *testing.T) {
	runner := &recordingRunner{}
	env := NewEnv(t.TempDir(), WithRunner(runner), WithVariantDir("build", "src"))
	env.AddBuilder(Builder{
		Name:      "Copy",
		SrcSuffix: ".txt",
		Generator: func([]Node, []Node, *Env, bool) ([]Command, error) { return nil, nil },
	})
	src := write(t, env, "src/A.txt", "payload")

	plan, err := NewExecutor(env).Plan(context.Background(), "Copy", []Node{env.Node(src)})
	require.NoError(t, err)

	data, err := os.ReadFile(plan.Sources[0].Path())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, env.File("build/A.txt"), plan.Sources[0].Path())
}

func TestSuffixOf(t *testing.T) {
	assert.Equal(t, ".g4", suffixOf("a/b/Foo.g4"))
	assert.Equal(t, "", suffixOf("a.b/Foo"))
	assert.Equal(t, "", suffixOf("Foo"))
}
