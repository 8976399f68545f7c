package build

import "context"

// Command is one process invocation produced by a generator.
type Command interface {
	Argv() []string
	String() string
}

// ScanFunc returns the extra dependencies of node. path is the search path,
// which scanners may ignore.
type ScanFunc func(node Node, env *Env, path []string) ([]Node, error)

// Scanner discovers implicit dependencies for files with one of Suffixes.
type Scanner struct {
	Name     string
	Suffixes []string
	Func     ScanFunc
}

// EmitterFunc decides the targets a builder will produce before it runs.
type EmitterFunc func(ctx context.Context, targets, sources []Node, env *Env) ([]Node, []Node, error)

// GeneratorFunc computes the commands for a build step at build time.
type GeneratorFunc func(sources, targets []Node, env *Env, forSignature bool) ([]Command, error)

// Builder is a generator-style action with an optional target emitter.
type Builder struct {
	Name      string
	SrcSuffix string
	Emitter   EmitterFunc
	Generator GeneratorFunc
}
