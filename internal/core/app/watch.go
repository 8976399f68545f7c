package app

import (
	"context"
	"g4build/internal/core/config"
	"g4build/internal/core/watcher"
	"g4build/internal/engine/graph"
	"g4build/internal/shared/observability"
	"g4build/internal/shared/util"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
)

func (a *App) setImports(g *graph.Graph) {
	if g == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, path := range g.Grammars() {
		a.imports.AddGrammar(path, g.Imports(path))
	}
}

// forgetRemoved drops the import edges of changed grammars that no longer
// exist. Edges into them stay, so their importers are still rebuilt.
func (a *App) forgetRemoved(paths []string) {
	_, env, _, _ := a.current()
	for _, path := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		srcPath := env.Node(path).SrcPath()
		a.mu.Lock()
		a.imports.RemoveGrammar(srcPath)
		a.mu.Unlock()
		slog.Debug("grammar removed", "path", srcPath)
	}
}

// Affected returns the discovered grammars that must be rebuilt after
// changed files were touched: the changed grammars themselves plus every
// grammar that imports one of them.
func (a *App) Affected(ctx context.Context, changed []string) ([]string, error) {
	sources, err := a.Discover(ctx)
	if err != nil {
		return nil, err
	}
	_, env, _, _ := a.current()

	known := make(map[string]bool, len(sources))
	for _, src := range sources {
		known[src] = true
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	affected := make(map[string]bool)
	for _, path := range changed {
		srcPath := env.Node(path).SrcPath()
		if known[srcPath] {
			affected[srcPath] = true
		}
		for _, dep := range a.imports.Dependents(srcPath) {
			if known[dep] {
				affected[dep] = true
			}
		}
	}
	return util.SortedStringKeys(affected), nil
}

// Watch builds every grammar once and then rebuilds affected grammars as
// files change, until ctx is done.
func (a *App) Watch(ctx context.Context) error {
	if err := a.requireTool("watch"); err != nil {
		return err
	}
	cfg, _, _, _ := a.current()

	if cfg.Observability.Enabled {
		server := observability.NewServer(cfg.Observability.Address)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	if _, err := a.Build(ctx, nil); err != nil {
		slog.Error("initial build failed", "error", err)
	}

	limiter := util.NewLimiter(cfg.Watch.Rate, cfg.Watch.Burst)
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, func(paths []string) {
		a.handleChanges(ctx, limiter, paths)
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch(a.Paths.SourcePaths); err != nil {
		return err
	}

	if a.configPath != "" {
		cw := config.NewWatcher(a.configPath, func(next *config.Config) {
			prev, _, _, _ := a.current()
			if err := a.configure(next); err != nil {
				slog.Error("failed to apply reloaded config", "error", err)
				return
			}
			w.SetDebounce(next.Watch.Debounce)
			slog.Info("config reloaded", "flags", next.Tool.Flags)
			if restartRequired(prev, next) {
				slog.Warn("source path and exclude changes reach the file watcher only after a restart")
			}
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "path", a.configPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	slog.Info("watching grammars", "paths", a.Paths.SourcePaths)
	<-ctx.Done()
	return nil
}

func (a *App) handleChanges(ctx context.Context, limiter *util.Limiter, paths []string) {
	for i, p := range paths {
		paths[i] = filepath.Clean(p)
	}
	a.forgetRemoved(paths)
	affected, err := a.Affected(ctx, paths)
	if err != nil {
		slog.Error("failed to compute affected grammars", "error", err)
		return
	}
	if len(affected) == 0 {
		slog.Debug("change touched no buildable grammar", "paths", paths)
		return
	}

	if !limiter.Allow() {
		observability.RebuildsThrottledTotal.Inc()
		if err := limiter.Wait(ctx); err != nil {
			return
		}
	}

	slog.Info("rebuilding", "grammars", affected)
	if _, err := a.Build(ctx, affected); err != nil {
		slog.Error("rebuild failed", "error", err)
	}
}

// restartRequired reports whether next changes settings the running grammar
// watcher was built from.
func restartRequired(prev, next *config.Config) bool {
	return !slices.Equal(prev.Sources.Paths, next.Sources.Paths) ||
		!slices.Equal(prev.Exclude.Dirs, next.Exclude.Dirs) ||
		!slices.Equal(prev.Exclude.Files, next.Exclude.Files)
}
