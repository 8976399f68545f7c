package config

import (
	"time"
)

const DefaultFileName = "g4build.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Tool          Tool          `toml:"tool"`
	Sources       Sources       `toml:"sources"`
	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
}

// Tool locates the grammar compiler. Runtime and Jar may start with "#/" to
// mark a project-root relative path.
type Tool struct {
	Runtime string   `toml:"runtime"`
	Jar     string   `toml:"jar"`
	Flags   []string `toml:"flags"`
	Detect  []string `toml:"detect"` // names looked up on PATH by the existence check
}

type Sources struct {
	Paths       []string     `toml:"paths"`
	VariantDirs []VariantDir `toml:"variant_dirs"`
}

// VariantDir builds the grammars under Src into Build.
type VariantDir struct {
	Build string `toml:"build"`
	Src   string `toml:"src"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Rate     float64       `toml:"rate"` // rebuilds per second
	Burst    int           `toml:"burst"`
}

type Database struct {
	Enabled *bool  `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	Enabled      bool   `toml:"enabled"`
	Address      string `toml:"address"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func (c *Config) HistoryEnabled() bool {
	return c.DB.Enabled != nil && *c.DB.Enabled
}
