package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type ResolvedPaths struct {
	ProjectRoot string
	StateDir    string
	DBPath      string
	SourcePaths []string
}

func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	projectRoot := strings.TrimSpace(cfg.Paths.ProjectRoot)
	if projectRoot != "" {
		projectRoot = ResolveRelative(cwd, projectRoot)
	} else {
		root, err := DetectProjectRoot([]string{cwd})
		if err != nil {
			return ResolvedPaths{}, err
		}
		projectRoot = root
	}

	stateDir := ResolveRelative(projectRoot, cfg.Paths.StateDir)

	dbPath := strings.TrimSpace(cfg.DB.Path)
	if filepath.IsAbs(dbPath) {
		dbPath = filepath.Clean(dbPath)
	} else {
		dbPath = filepath.Join(stateDir, dbPath)
	}

	sources := make([]string, 0, len(cfg.Sources.Paths))
	for _, p := range cfg.Sources.Paths {
		sources = append(sources, ResolveRelative(projectRoot, p))
	}

	return ResolvedPaths{
		ProjectRoot: filepath.Clean(projectRoot),
		StateDir:    filepath.Clean(stateDir),
		DBPath:      filepath.Clean(dbPath),
		SourcePaths: sources,
	}, nil
}

// ResolveRelative joins value onto base unless it is absolute. A leading "#"
// marks a base-relative path explicitly.
func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if strings.HasPrefix(raw, "#") {
		raw = strings.TrimLeft(strings.TrimPrefix(raw, "#"), `/\`)
	}
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from each candidate until it finds a directory
// holding one of the project markers, falling back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		DefaultFileName,
		"SConstruct",
		".git",
		"go.mod",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
