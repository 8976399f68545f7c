package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Validate runs every section validator and joins their errors.
func Validate(cfg *Config) error {
	return errors.Join(
		validateVersion(cfg),
		validateTool(cfg),
		validateSources(cfg),
		validateExclude(cfg),
		validateWatch(cfg),
		validateObservability(cfg),
	)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateTool(cfg *Config) error {
	if cfg.Tool.Runtime == "" {
		return fmt.Errorf("tool.runtime must not be empty")
	}
	if cfg.Tool.Jar == "" {
		return fmt.Errorf("tool.jar must not be empty")
	}
	if len(cfg.Tool.Detect) == 0 {
		return fmt.Errorf("tool.detect must name at least one program")
	}
	for _, flag := range cfg.Tool.Flags {
		switch flag {
		case "-o", "-lib", "-Xexact-output-dir", "-depend":
			return fmt.Errorf("tool.flags must not contain %s; it is set per grammar", flag)
		}
	}
	return nil
}

func validateSources(cfg *Config) error {
	if len(cfg.Sources.Paths) == 0 {
		return fmt.Errorf("sources.paths must not be empty")
	}
	seen := make(map[string]bool, len(cfg.Sources.VariantDirs))
	for i, v := range cfg.Sources.VariantDirs {
		ref := fmt.Sprintf("sources.variant_dirs[%d]", i)
		if v.Build == "" || v.Src == "" {
			return fmt.Errorf("%s needs both build and src", ref)
		}
		if filepath.Clean(v.Build) == filepath.Clean(v.Src) {
			return fmt.Errorf("%s.build must differ from src", ref)
		}
		if seen[filepath.Clean(v.Build)] {
			return fmt.Errorf("duplicate variant build dir %q", v.Build)
		}
		seen[filepath.Clean(v.Build)] = true
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs pattern %q: %w", pattern, err)
		}
	}
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.Rate < 0 {
		return fmt.Errorf("watch.rate must not be negative")
	}
	if cfg.Watch.Burst < 0 {
		return fmt.Errorf("watch.burst must not be negative")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Enabled && cfg.Observability.Address == "" {
		return fmt.Errorf("observability.address must be set when observability is enabled")
	}
	return nil
}
