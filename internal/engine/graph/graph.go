// Package graph tracks which grammar files import which, keyed by the path of
// the original source file.
package graph

import (
	"sort"
	"sync"
)

type Graph struct {
	mu sync.RWMutex

	grammars   map[string]bool
	imports    map[string][]string        // from -> ordered, de-duplicated imports
	importedBy map[string]map[string]bool // to -> from
}

func NewGraph() *Graph {
	return &Graph{
		grammars:   make(map[string]bool),
		imports:    make(map[string][]string),
		importedBy: make(map[string]map[string]bool),
	}
}

// AddGrammar records path and replaces its outgoing imports. Imported paths
// become known grammars too, even when they do not exist on disk.
func (g *Graph) AddGrammar(path string, imports []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeImportsLocked(path)
	g.grammars[path] = true

	seen := make(map[string]bool, len(imports))
	edges := make([]string, 0, len(imports))
	for _, to := range imports {
		if seen[to] {
			continue
		}
		seen[to] = true
		edges = append(edges, to)
		g.grammars[to] = true
		if g.importedBy[to] == nil {
			g.importedBy[to] = make(map[string]bool)
		}
		g.importedBy[to][path] = true
	}
	g.imports[path] = edges
}

// RemoveGrammar drops path's outgoing edges. Edges pointing at path stay so
// importers still resolve to it.
func (g *Graph) RemoveGrammar(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeImportsLocked(path)
	if len(g.importedBy[path]) == 0 {
		delete(g.grammars, path)
	}
}

func (g *Graph) removeImportsLocked(path string) {
	for _, to := range g.imports[path] {
		if g.importedBy[to] != nil {
			delete(g.importedBy[to], path)
		}
	}
	delete(g.imports, path)
}

// Grammars returns every known grammar path in sorted order.
func (g *Graph) Grammars() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.grammars))
	for path := range g.grammars {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Imports returns path's direct imports in declaration order.
func (g *Graph) Imports(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.imports[path]...)
}
