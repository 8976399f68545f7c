package graph

import "sort"

// DetectCycles returns each import cycle once, starting from the first
// grammar on the DFS stack. A self-import is a cycle of length one.
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	roots := make([]string, 0, len(g.grammars))
	for path := range g.grammars {
		roots = append(roots, path)
	}
	sort.Strings(roots)

	for _, path := range roots {
		if !visited[path] {
			g.findCycles(path, visited, onStack, []string{}, &cycles)
		}
	}

	return cycles
}

func (g *Graph) findCycles(curr string, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	for _, next := range g.imports[curr] {
		if onStack[next] {
			cycleStart := -1
			for i, p := range path {
				if p == next {
					cycleStart = i
					break
				}
			}
			if cycleStart != -1 {
				cycle := make([]string, len(path)-cycleStart)
				copy(cycle, path[cycleStart:])
				*cycles = append(*cycles, cycle)
			}
		} else if !visited[next] {
			g.findCycles(next, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// FindImportChain returns the shortest import path from one grammar to another.
func (g *Graph) FindImportChain(from, to string) ([]string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.grammars[from] || !g.grammars[to] {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	queue := []string{from}
	visited := map[string]bool{from: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range g.imports[curr] {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == to {
				chain := []string{to}
				for node := to; node != from; {
					p := prev[node]
					chain = append(chain, p)
					node = p
				}
				for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
					chain[i], chain[j] = chain[j], chain[i]
				}
				return chain, true
			}

			queue = append(queue, next)
		}
	}

	return nil, false
}

// Dependents returns every grammar that imports path directly or
// transitively, sorted. path itself is not included unless it sits on a cycle.
func (g *Graph) Dependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]bool)
	queue := []string{path}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for importer := range g.importedBy[curr] {
			if seen[importer] {
				continue
			}
			seen[importer] = true
			queue = append(queue, importer)
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
