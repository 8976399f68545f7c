// Package build is a minimal build host: file nodes with variant directories,
// an environment that scanners and builders register into, and an executor
// that plans and runs one builder over a set of sources.
package build

import (
	"bytes"
	"os"
	"path/filepath"
)

// Node is a file as the build sees it. path is where the build reads or
// writes it (possibly inside a variant dir); srcPath is the original source
// file it maps back to.
type Node struct {
	path    string
	srcPath string
}

// NewNode returns a node whose build path and source path are the same.
// The path is kept verbatim.
func NewNode(path string) Node {
	return Node{path: path, srcPath: path}
}

func (n Node) Path() string   { return n.path }
func (n Node) String() string { return n.path }

// Dir is the directory outputs for this node are written to.
func (n Node) Dir() string { return filepath.Dir(n.path) }

// SrcNode returns the node for the original source file.
func (n Node) SrcNode() Node { return NewNode(n.srcPath) }

// SrcPath is the path of the original source file.
func (n Node) SrcPath() string { return n.srcPath }

// SrcDir is the directory of the original source file.
func (n Node) SrcDir() string { return filepath.Dir(n.srcPath) }

// File returns a sibling of n named name, in both the build and source trees.
func (n Node) File(name string) Node {
	return Node{
		path:    filepath.Join(n.Dir(), name),
		srcPath: filepath.Join(n.SrcDir(), name),
	}
}

// Text reads the original source file.
func (n Node) Text() (string, error) {
	data, err := os.ReadFile(n.srcPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether the original source file is present.
func (n Node) Exists() bool {
	info, err := os.Stat(n.srcPath)
	return err == nil && !info.IsDir()
}

// Paths returns the build path of every node.
func Paths(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.path
	}
	return out
}

// Materialize copies the original source into the build path when the two
// differ, the way a variant dir duplicates its sources.
func (n Node) Materialize() error {
	if n.path == n.srcPath {
		return nil
	}
	data, err := os.ReadFile(n.srcPath)
	if err != nil {
		return err
	}
	if current, err := os.ReadFile(n.path); err == nil && bytes.Equal(current, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(n.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(n.path, data, 0o644)
}
