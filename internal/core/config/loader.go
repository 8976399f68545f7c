package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes TOML text, applies defaults and environment overrides, and
// validates the result.
func Parse(text string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(text, &cfg); err != nil {
		return nil, err
	}

	ApplyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".g4build"
	}

	if strings.TrimSpace(cfg.Tool.Runtime) == "" {
		cfg.Tool.Runtime = "#/external/jdk-12/bin/java.exe"
	}
	if strings.TrimSpace(cfg.Tool.Jar) == "" {
		cfg.Tool.Jar = "#/external/antlr-4.7.1-complete.jar"
	}
	if len(cfg.Tool.Detect) == 0 {
		cfg.Tool.Detect = []string{"antlr"}
	}

	if len(cfg.Sources.Paths) == 0 {
		cfg.Sources.Paths = []string{"."}
	}
	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", ".g4build"}
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.Rate == 0 {
		cfg.Watch.Rate = 2
	}
	if cfg.Watch.Burst == 0 {
		cfg.Watch.Burst = 1
	}

	if cfg.DB.Enabled == nil {
		enabled := true
		cfg.DB.Enabled = &enabled
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "history.db"
	}

	if strings.TrimSpace(cfg.Observability.Address) == "" {
		cfg.Observability.Address = "127.0.0.1:9464"
	}
}

func normalize(cfg *Config) {
	cfg.Paths.ProjectRoot = strings.TrimSpace(cfg.Paths.ProjectRoot)
	cfg.Paths.StateDir = strings.TrimSpace(cfg.Paths.StateDir)
	cfg.Tool.Runtime = strings.TrimSpace(cfg.Tool.Runtime)
	cfg.Tool.Jar = strings.TrimSpace(cfg.Tool.Jar)
	cfg.Tool.Flags = trimAll(cfg.Tool.Flags)
	cfg.Tool.Detect = trimAll(cfg.Tool.Detect)
	cfg.Sources.Paths = trimAll(cfg.Sources.Paths)
	for i := range cfg.Sources.VariantDirs {
		v := &cfg.Sources.VariantDirs[i]
		v.Build = strings.TrimSpace(v.Build)
		v.Src = strings.TrimSpace(v.Src)
	}
	cfg.Exclude.Dirs = trimAll(cfg.Exclude.Dirs)
	cfg.Exclude.Files = trimAll(cfg.Exclude.Files)
	cfg.Observability.Address = strings.TrimSpace(cfg.Observability.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
