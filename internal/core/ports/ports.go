package ports

import (
	"context"
	"g4build/internal/data/history"
	"time"
)

// HistoryStore abstracts build-run persistence for the history command.
type HistoryStore interface {
	SaveRun(run history.Run) (string, error)
	LoadRuns(since time.Time, limit int) ([]history.Run, error)
	Close() error
}

// GrammarDeps lists the grammars a source pulls in, in discovery order.
// Chains[i] is the shortest import path from Source to Imports[i], by
// original source path.
type GrammarDeps struct {
	Source  string
	Imports []string
	Chains  [][]string
}

// DepsReport is the scanner view of a set of sources.
type DepsReport struct {
	Grammars []GrammarDeps
	Cycles   [][]string
}

// TargetsReport is the emitter view of a set of sources: the files the
// compiler will write and the command lines that would write them.
type TargetsReport struct {
	Sources  []string
	Targets  []string
	Commands []string
}

// BuildResult summarizes a completed build.
type BuildResult struct {
	RunID    string
	Sources  []string
	Targets  []string
	Commands []string
	Duration time.Duration
}

// BuildService is the driving-port surface used by the CLI.
type BuildService interface {
	Check(ctx context.Context) (string, error)
	Discover(ctx context.Context) ([]string, error)
	Deps(ctx context.Context, files []string) (DepsReport, error)
	Targets(ctx context.Context, files []string) (TargetsReport, error)
	Build(ctx context.Context, files []string) (BuildResult, error)
	Watch(ctx context.Context) error
	History(ctx context.Context, since time.Time, limit int) ([]history.Run, error)
	Close(ctx context.Context) error
}
