package antlr

import (
	"fmt"
	"regexp"

	"g4build/internal/engine/build"
)

var importPattern = regexp.MustCompile(`(?m)^\s*import\s+(\S+)\s*;`)

// ScanImports returns the names from every `import X;` line in text, in
// order, duplicates included. Comments are not special-cased.
func ScanImports(text string) []string {
	matches := importPattern.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Scan is the build.ScanFunc for grammar files. Imports resolve against the
// original source directory; whether they exist is left to the build.
func Scan(node build.Node, env *build.Env, _ []string) ([]build.Node, error) {
	text, err := node.Text()
	if err != nil {
		return nil, fmt.Errorf("read grammar %s: %w", node.SrcPath(), err)
	}

	lib := node.SrcNode()
	names := ScanImports(text)
	deps := make([]build.Node, 0, len(names))
	for _, name := range names {
		deps = append(deps, lib.File(name+GrammarSuffix))
	}
	return deps, nil
}
