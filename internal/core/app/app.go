// Package app wires configuration, the build host, the grammar tool and the
// history store into the operations the CLI exposes.
package app

import (
	"context"
	"g4build/internal/core/config"
	"g4build/internal/core/errors"
	"g4build/internal/core/ports"
	"g4build/internal/core/watcher"
	"g4build/internal/data/history"
	"g4build/internal/engine/antlr"
	"g4build/internal/engine/build"
	"g4build/internal/engine/graph"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
)

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	configPath  string
	detect      build.Detector
	runner      build.Runner
	history     ports.HistoryStore
	ownsHistory bool

	mu           sync.RWMutex
	env          *build.Env
	executor     *build.Executor
	toolFound    bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	imports      *graph.Graph
}

var _ ports.BuildService = (*App)(nil)

type Option func(*App)

// WithDetector replaces the PATH lookup used by the existence check.
func WithDetector(detect build.Detector) Option {
	return func(a *App) { a.detect = detect }
}

// WithRunner replaces the subprocess launcher.
func WithRunner(r build.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithHistory uses store instead of opening the configured database.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

// WithConfigPath enables config reloads in watch mode.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if strings.TrimSpace(paths.ProjectRoot) == "" {
		return nil, errors.New(errors.CodeValidationError, "project root is required")
	}

	a := &App{
		Config:  cfg,
		Paths:   paths,
		imports: graph.NewGraph(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runner == nil {
		a.runner = build.ExecRunner{Dir: paths.ProjectRoot}
	}

	if err := a.configure(cfg); err != nil {
		return nil, err
	}

	if a.history == nil && cfg.HistoryEnabled() {
		store, err := history.Open(paths.DBPath)
		switch {
		case err == nil:
			a.history = store
			a.ownsHistory = true
			slog.Debug("history opened", "path", store.Path())
		case history.IsCorruptError(err):
			slog.Warn("history database is corrupt, runs will not be recorded", "path", paths.DBPath, "error", err)
		default:
			slog.Warn("history disabled", "path", paths.DBPath, "error", err)
		}
	}

	return a, nil
}

// configure builds a fresh environment from cfg and swaps it in. The
// grammar tool is only registered when the existence check finds it.
func (a *App) configure(cfg *config.Config) error {
	excludeDirs, err := watcher.CompileGlobs(cfg.Exclude.Dirs)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "compile exclude dirs")
	}
	excludeFiles, err := watcher.CompileGlobs(cfg.Exclude.Files)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "compile exclude files")
	}

	opts := []build.Option{build.WithRunner(a.runner), build.WithDetector(a.detect)}
	for _, v := range cfg.Sources.VariantDirs {
		opts = append(opts, build.WithVariantDir(v.Build, v.Src))
	}
	env := build.NewEnv(a.Paths.ProjectRoot, opts...)

	found := antlr.Exists(env, cfg.Tool.Detect...)
	if found {
		antlr.Register(env, antlr.ToolPaths{
			Runtime: cfg.Tool.Runtime,
			Jar:     cfg.Tool.Jar,
			Flags:   cfg.Tool.Flags,
		})
	} else {
		slog.Warn("antlr not found on PATH, grammar builds are disabled", "detect", strings.Join(cfg.Tool.Detect, ","))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Config = cfg
	a.env = env
	a.executor = build.NewExecutor(env)
	a.toolFound = found
	a.excludeDirs = excludeDirs
	a.excludeFiles = excludeFiles
	return nil
}

func (a *App) current() (*config.Config, *build.Env, *build.Executor, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Config, a.env, a.executor, a.toolFound
}

func (a *App) requireTool(operation string) error {
	_, _, _, found := a.current()
	if found {
		return nil
	}
	err := errors.New(errors.CodeToolMissing, "antlr is not installed")
	return errors.AddContext(err, errors.CtxOperation, operation)
}

// Check runs the existence check and returns the program it found.
func (a *App) Check(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg, env, _, _ := a.current()
	path, ok := env.Detect(cfg.Tool.Detect...)
	if !ok {
		err := errors.New(errors.CodeToolMissing, "none of "+strings.Join(cfg.Tool.Detect, ", ")+" found on PATH")
		return "", errors.AddContext(err, errors.CtxOperation, "check")
	}
	return path, nil
}

// History returns recorded runs, newest first.
func (a *App) History(ctx context.Context, since time.Time, limit int) ([]history.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.history == nil {
		return nil, errors.New(errors.CodeValidationError, "build history is disabled")
	}
	runs, err := a.history.LoadRuns(since, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load history")
	}
	return runs, nil
}

func (a *App) Close(_ context.Context) error {
	if a.history != nil && a.ownsHistory {
		return a.history.Close()
	}
	return nil
}
