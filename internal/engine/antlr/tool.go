package antlr

import (
	"g4build/internal/engine/build"
)

const (
	DefaultRuntime = "#/external/jdk-12/bin/java.exe"
	DefaultJar     = "#/external/antlr-4.7.1-complete.jar"
)

// DefaultDetect is the program name the existence check looks for.
var DefaultDetect = []string{"antlr"}

// ToolPaths locates the compiler. Relative and "#/" paths resolve against
// the environment root.
type ToolPaths struct {
	Runtime string
	Jar     string
	Flags   []string
}

// Generate is the build.GeneratorFunc: one compiler run per source.
func Generate(sources, _ []build.Node, env *build.Env, _ bool) ([]build.Command, error) {
	settings := SettingsFrom(env)
	commands := make([]build.Command, 0, len(sources))
	for _, src := range sources {
		commands = append(commands, BuildCommand(src, settings))
	}
	return commands, nil
}

// Register adds the grammar scanner, the Antlr4Grammar builder and the
// ANTLR4 launch command to env.
func Register(env *build.Env, paths ToolPaths) {
	env.AddScanner(build.Scanner{
		Name:     ScannerName,
		Suffixes: []string{GrammarSuffix},
		Func:     Scan,
	})

	env.AddBuilder(build.Builder{
		Name:      BuilderName,
		SrcSuffix: GrammarSuffix,
		Emitter:   Emit,
		Generator: Generate,
	})

	runtime := paths.Runtime
	if runtime == "" {
		runtime = DefaultRuntime
	}
	jar := paths.Jar
	if jar == "" {
		jar = DefaultJar
	}
	env.SetVar(ToolVar, []string{env.File(runtime), "-jar", env.File(jar)})
	env.SetVar(FlagsVar, paths.Flags)
}

// Exists reports whether the compiler can be found on the search path. With
// no names it looks for DefaultDetect.
func Exists(env *build.Env, names ...string) bool {
	if len(names) == 0 {
		names = DefaultDetect
	}
	_, ok := env.Detect(names...)
	return ok
}
