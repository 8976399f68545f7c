package build

import (
	"os/exec"
	"path/filepath"
	"strings"

	"g4build/internal/shared/util"
)

// VariantDir maps a build directory onto the source directory it mirrors.
type VariantDir struct {
	BuildDir string
	SrcDir   string
}

// Detector looks a program up on the search path.
type Detector func(name string) (string, error)

// Env is the configuration record threaded through scanners, emitters and
// generators. Registration fills it once; after that it is only read.
type Env struct {
	root     string
	vars     map[string][]string
	scanners []Scanner
	builders map[string]Builder
	variants []VariantDir
	detect   Detector
	runner   Runner
}

type Option func(*Env)

func WithVariantDir(buildDir, srcDir string) Option {
	return func(e *Env) {
		e.variants = append(e.variants, VariantDir{
			BuildDir: e.File(buildDir),
			SrcDir:   e.File(srcDir),
		})
	}
}

func WithDetector(detect Detector) Option {
	return func(e *Env) {
		if detect != nil {
			e.detect = detect
		}
	}
}

func WithRunner(r Runner) Option {
	return func(e *Env) {
		if r != nil {
			e.runner = r
		}
	}
}

// NewEnv creates an environment rooted at root, the directory "#/" paths
// resolve against.
func NewEnv(root string, opts ...Option) *Env {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	e := &Env{
		root:     abs,
		vars:     make(map[string][]string),
		builders: make(map[string]Builder),
		detect:   exec.LookPath,
		runner:   ExecRunner{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Env) Root() string   { return e.root }
func (e *Env) Runner() Runner { return e.runner }

// File resolves path against the project root. A leading "#" (or "#/") marks
// a root-relative path; absolute paths are only cleaned.
func (e *Env) File(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "#") {
		path = strings.TrimLeft(strings.TrimPrefix(path, "#"), `/\`)
		return filepath.Join(e.root, path)
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(e.root, path)
}

// Node returns the node for path, mapping it through the variant dirs. A path
// inside a source dir is built in the matching build dir; a path inside a
// build dir reads from the matching source dir.
func (e *Env) Node(path string) Node {
	abs := e.File(path)
	for _, v := range e.variants {
		if util.HasPathPrefix(abs, v.BuildDir) {
			rel, err := filepath.Rel(v.BuildDir, abs)
			if err == nil {
				return Node{path: abs, srcPath: filepath.Join(v.SrcDir, rel)}
			}
		}
		if util.HasPathPrefix(abs, v.SrcDir) {
			rel, err := filepath.Rel(v.SrcDir, abs)
			if err == nil {
				return Node{path: filepath.Join(v.BuildDir, rel), srcPath: abs}
			}
		}
	}
	return NewNode(abs)
}

// SetVar replaces the argv stored under name.
func (e *Env) SetVar(name string, argv []string) {
	e.vars[name] = append([]string(nil), argv...)
}

// Var returns a copy of the argv stored under name.
func (e *Env) Var(name string) []string {
	return append([]string(nil), e.vars[name]...)
}

func (e *Env) AddScanner(s Scanner) {
	e.scanners = append(e.scanners, s)
}

// ScannerFor returns the first scanner registered for path's suffix.
func (e *Env) ScannerFor(path string) (Scanner, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range e.scanners {
		for _, suffix := range s.Suffixes {
			if strings.ToLower(suffix) == ext {
				return s, true
			}
		}
	}
	return Scanner{}, false
}

func (e *Env) AddBuilder(b Builder) {
	e.builders[b.Name] = b
}

func (e *Env) Builder(name string) (Builder, bool) {
	b, ok := e.builders[name]
	return b, ok
}

// Detect returns the first of names found on the search path.
func (e *Env) Detect(names ...string) (string, bool) {
	for _, name := range names {
		if path, err := e.detect(name); err == nil && path != "" {
			return path, true
		}
	}
	return "", false
}
