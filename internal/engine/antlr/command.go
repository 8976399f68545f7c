// Package antlr wires the ANTLR 4 grammar compiler into the build host: it
// builds the compiler's command lines, scans grammars for imports, asks the
// compiler which files it will generate, and registers all of it.
package antlr

import (
	"g4build/internal/engine/build"
	"g4build/internal/shared/util"
)

const (
	// ToolVar holds the compiler launch command, runtime plus bundled jar.
	ToolVar = "ANTLR4"
	// FlagsVar holds extra compiler flags such as -Dlanguage=Cpp.
	FlagsVar = "ANTLR4FLAGS"

	GrammarSuffix = ".g4"
	BuilderName   = "Antlr4Grammar"
	ScannerName   = "antlr4"

	dependFlag = "-depend"
)

// TokenKind tags an argument with its role. It is descriptive metadata for
// callers inspecting a command line through Tokens; Argv and String ignore it
// and quote every token alike.
type TokenKind int

const (
	TokenTool TokenKind = iota
	TokenFlag
	TokenPath
)

type Token struct {
	Kind  TokenKind
	Value string
}

// CommandLine is an ordered, typed argument list for one compiler run.
type CommandLine struct {
	tokens []Token
}

var _ build.Command = CommandLine{}

// Settings is the part of the environment a command line depends on.
type Settings struct {
	Tool  []string
	Flags []string
}

func SettingsFrom(env *build.Env) Settings {
	return Settings{
		Tool:  env.Var(ToolVar),
		Flags: env.Var(FlagsVar),
	}
}

// BuildCommand returns
//
//	<tool...> <flags...> -lib <library-dir> -o <dest-dir> -Xexact-output-dir <source>
//
// where the library dir is the original source's directory and the
// destination is the directory the build sees src in.
func BuildCommand(src build.Node, s Settings) CommandLine {
	tokens := make([]Token, 0, len(s.Tool)+len(s.Flags)+7)
	for _, arg := range s.Tool {
		tokens = append(tokens, Token{Kind: TokenTool, Value: arg})
	}
	for _, flag := range s.Flags {
		tokens = append(tokens, Token{Kind: TokenFlag, Value: flag})
	}
	tokens = append(tokens,
		Token{Kind: TokenFlag, Value: "-lib"},
		Token{Kind: TokenPath, Value: src.SrcDir()},
		Token{Kind: TokenFlag, Value: "-o"},
		Token{Kind: TokenPath, Value: src.Dir()},
		Token{Kind: TokenFlag, Value: "-Xexact-output-dir"},
		Token{Kind: TokenPath, Value: src.Path()},
	)
	return CommandLine{tokens: tokens}
}

// WithDepend returns a copy with a trailing -depend flag.
func (c CommandLine) WithDepend() CommandLine {
	tokens := make([]Token, len(c.tokens), len(c.tokens)+1)
	copy(tokens, c.tokens)
	return CommandLine{tokens: append(tokens, Token{Kind: TokenFlag, Value: dependFlag})}
}

func (c CommandLine) Tokens() []Token {
	return append([]Token(nil), c.tokens...)
}

func (c CommandLine) Argv() []string {
	argv := make([]string, len(c.tokens))
	for i, tok := range c.tokens {
		argv[i] = tok.Value
	}
	return argv
}

func (c CommandLine) String() string {
	return util.ShellJoin(c.Argv())
}
