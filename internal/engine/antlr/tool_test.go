package antlr

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"g4build/internal/engine/build"
)

func TestRegister(t *testing.T) {
	root := t.TempDir()
	env := build.NewEnv(root)
	Register(env, ToolPaths{Flags: []string{"-Dlanguage=Cpp"}})

	scanner, ok := env.ScannerFor("grammars/Foo.g4")
	require.True(t, ok)
	assert.Equal(t, ScannerName, scanner.Name)
	_, ok = env.ScannerFor("Foo.cpp")
	assert.False(t, ok)

	builder, ok := env.Builder(BuilderName)
	require.True(t, ok)
	assert.Equal(t, GrammarSuffix, builder.SrcSuffix)
	assert.NotNil(t, builder.Emitter)
	assert.NotNil(t, builder.Generator)

	assert.Equal(t, []string{
		filepath.Join(root, "external", "jdk-12", "bin", "java.exe"),
		"-jar",
		filepath.Join(root, "external", "antlr-4.7.1-complete.jar"),
	}, env.Var(ToolVar))
	assert.Equal(t, []string{"-Dlanguage=Cpp"}, env.Var(FlagsVar))
}

func TestRegister_CustomPaths(t *testing.T) {
	root := t.TempDir()
	env := build.NewEnv(root)
	Register(env, ToolPaths{Runtime: "/usr/bin/java", Jar: "tools/antlr.jar"})

	assert.Equal(t, []string{"/usr/bin/java", "-jar", filepath.Join(root, "tools", "antlr.jar")}, env.Var(ToolVar))
}

func TestGenerate_OneCommandPerSourceWithoutDepend(t *testing.T) {
	env := newTestEnv(t, &fakeRunner{})
	sources := []build.Node{env.Node("A.g4"), env.Node("B.g4")}

	commands, err := Generate(sources, nil, env, false)
	require.NoError(t, err)
	require.Len(t, commands, 2)
	for i, cmd := range commands {
		argv := cmd.Argv()
		assert.Equal(t, sources[i].Path(), argv[len(argv)-1])
		assert.NotContains(t, argv, "-depend")
	}
}

func TestExists(t *testing.T) {
	var asked []string
	detector := func(name string) (string, error) {
		asked = append(asked, name)
		if name == "antlr4" {
			return "/usr/local/bin/antlr4", nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	env := build.NewEnv(t.TempDir(), build.WithDetector(detector))

	assert.False(t, Exists(env))
	assert.Equal(t, []string{"antlr"}, asked)

	assert.True(t, Exists(env, "antlr", "antlr4"))
}
