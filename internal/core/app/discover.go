package app

import (
	"context"
	"g4build/internal/core/errors"
	"g4build/internal/core/watcher"
	"g4build/internal/engine/antlr"
	"g4build/internal/engine/build"
	"g4build/internal/shared/util"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Discover walks the configured source paths for grammar files. Excluded
// dirs and files are skipped, and so are variant build dirs, which only
// hold copies.
func (a *App) Discover(ctx context.Context) ([]string, error) {
	cfg, env, _, _ := a.current()
	a.mu.RLock()
	excludeDirs, excludeFiles := a.excludeDirs, a.excludeFiles
	a.mu.RUnlock()

	buildDirs := make([]string, 0, len(cfg.Sources.VariantDirs))
	for _, v := range cfg.Sources.VariantDirs {
		buildDirs = append(buildDirs, env.File(v.Build))
	}

	seen := make(map[string]bool)
	for _, root := range a.Paths.SourcePaths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root && os.IsNotExist(err) {
					return fs.SkipDir
				}
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if path == root {
					return nil
				}
				if watcher.MatchAny(excludeDirs, path) {
					return fs.SkipDir
				}
				for _, dir := range buildDirs {
					if util.HasPathPrefix(path, dir) {
						return fs.SkipDir
					}
				}
				return nil
			}
			if !strings.EqualFold(filepath.Ext(path), antlr.GrammarSuffix) {
				return nil
			}
			if watcher.MatchAny(excludeFiles, path) {
				return nil
			}
			seen[filepath.Clean(path)] = true
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "discover grammars"), errors.CtxPath, root)
		}
	}

	return util.SortedStringKeys(seen), nil
}

// nodes maps command-line files onto build nodes. With no files every
// discovered grammar is used.
func (a *App) nodes(ctx context.Context, env *build.Env, files []string) ([]build.Node, error) {
	if len(files) == 0 {
		discovered, err := a.Discover(ctx)
		if err != nil {
			return nil, err
		}
		if len(discovered) == 0 {
			return nil, errors.New(errors.CodeNotFound, "no grammar files found")
		}
		files = discovered
	}

	out := make([]build.Node, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve path"), errors.CtxPath, f)
		}
		out = append(out, env.Node(abs))
	}
	return out, nil
}
