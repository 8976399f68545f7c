package main

import (
	"bytes"
	"context"
	"g4build/internal/core/errors"
	"g4build/internal/core/ports"
	"g4build/internal/data/history"
	"strings"
	"testing"
	"time"
)

type fakeService struct {
	checkErr   error
	built      []string
	historyArg struct {
		since time.Time
		limit int
	}
	runs []history.Run
}

func (f *fakeService) Check(context.Context) (string, error) {
	if f.checkErr != nil {
		return "", f.checkErr
	}
	return "/usr/bin/antlr", nil
}

func (f *fakeService) Discover(context.Context) ([]string, error) { return nil, nil }

func (f *fakeService) Deps(_ context.Context, files []string) (ports.DepsReport, error) {
	return ports.DepsReport{
		Grammars: []ports.GrammarDeps{{
			Source:  files[0],
			Imports: []string{"src/Common.g4", "src/Lexical.g4"},
			Chains: [][]string{
				{files[0], "src/Common.g4"},
				{files[0], "src/Common.g4", "src/Lexical.g4"},
			},
		}},
		Cycles:   [][]string{{"src/A.g4", "src/B.g4"}},
	}, nil
}

func (f *fakeService) Targets(_ context.Context, files []string) (ports.TargetsReport, error) {
	return ports.TargetsReport{
		Sources:  files,
		Targets:  []string{"src/ExprParser.java"},
		Commands: []string{"java -jar antlr.jar src/Expr.g4"},
	}, nil
}

func (f *fakeService) Build(_ context.Context, files []string) (ports.BuildResult, error) {
	f.built = files
	return ports.BuildResult{Sources: []string{"a", "b"}, Targets: []string{"x"}, Commands: []string{"java a", "java b"}}, nil
}

func (f *fakeService) Watch(context.Context) error { return nil }

func (f *fakeService) History(_ context.Context, since time.Time, limit int) ([]history.Run, error) {
	f.historyArg.since = since
	f.historyArg.limit = limit
	return f.runs, nil
}

func (f *fakeService) Close(context.Context) error { return nil }

func TestRunCommand_Check(t *testing.T) {
	var out bytes.Buffer
	if err := runCommand(context.Background(), &fakeService{}, "check", nil, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "antlr found: /usr/bin/antlr\n" {
		t.Fatalf("unexpected output %q", out.String())
	}

	missing := errors.New(errors.CodeToolMissing, "antlr is not installed")
	err := runCommand(context.Background(), &fakeService{checkErr: missing}, "check", nil, &out)
	if !errors.IsCode(err, errors.CodeToolMissing) {
		t.Fatalf("expected TOOL_MISSING, got %v", err)
	}
}

func TestRunCommand_DepsAndTargetsNeedFiles(t *testing.T) {
	for _, name := range []string{"deps", "targets"} {
		err := runCommand(context.Background(), &fakeService{}, name, nil, &bytes.Buffer{})
		if !errors.IsCode(err, errors.CodeValidationError) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestRunCommand_Deps(t *testing.T) {
	var out bytes.Buffer
	if err := runCommand(context.Background(), &fakeService{}, "deps", []string{"src/Expr.g4"}, &out); err != nil {
		t.Fatal(err)
	}
	want := "src/Expr.g4 (2)\n" +
		"  - src/Common.g4\n" +
		"  - src/Lexical.g4  (via src/Common.g4)\n" +
		"\nImport cycles (1)\n" +
		"  src/A.g4 -> src/B.g4 -> src/A.g4\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunCommand_Targets(t *testing.T) {
	var out bytes.Buffer
	if err := runCommand(context.Background(), &fakeService{}, "targets", []string{"src/Expr.g4"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "- src/ExprParser.java\n") || !strings.Contains(out.String(), "$ java -jar antlr.jar src/Expr.g4\n") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunCommand_BuildPassesFiles(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer
	if err := runCommand(context.Background(), svc, "build", []string{"A.g4"}, &out); err != nil {
		t.Fatal(err)
	}
	if len(svc.built) != 1 || svc.built[0] != "A.g4" {
		t.Fatalf("unexpected build files %v", svc.built)
	}
	if !strings.Contains(out.String(), "built 2 grammar(s), 1 target(s)") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunCommand_History(t *testing.T) {
	svc := &fakeService{runs: []history.Run{{
		Time:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Builder:  "Antlr4Grammar",
		Status:   history.StatusFailed,
		Error:    "missing source",
		Duration: time.Second,
		Sources:  []string{"Expr.g4"},
	}}}
	var out bytes.Buffer
	if err := runCommand(context.Background(), svc, "history", []string{"-since", "1h", "-limit", "5"}, &out); err != nil {
		t.Fatal(err)
	}
	if svc.historyArg.limit != 5 {
		t.Fatalf("expected limit 5, got %d", svc.historyArg.limit)
	}
	if svc.historyArg.since.IsZero() || time.Since(svc.historyArg.since) < time.Hour {
		t.Fatalf("unexpected since %v", svc.historyArg.since)
	}
	want := "2026-03-01 12:00:00  failed    1 source(s)    0 target(s)  1s  missing source\n"
	if out.String() != want {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := runCommand(context.Background(), &fakeService{}, "history", nil, &out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "no recorded builds\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestRunCommand_Unknown(t *testing.T) {
	err := runCommand(context.Background(), &fakeService{}, "publish", nil, &bytes.Buffer{})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
	err = runCommand(context.Background(), &fakeService{}, "watch", []string{"x"}, &bytes.Buffer{})
	if !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadConfig_DefaultFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, file, err := loadConfig("./" + "g4build.toml")
	if err != nil {
		t.Fatal(err)
	}
	if file != "" || cfg.Version != 1 {
		t.Fatalf("expected defaults, got file=%q version=%d", file, cfg.Version)
	}

	if _, _, err := loadConfig("missing.toml"); err == nil {
		t.Fatal("expected error for explicit missing config")
	}
}
