package main

import (
	"context"
	"flag"
	"fmt"
	"g4build/internal/core/errors"
	"g4build/internal/core/ports"
	"g4build/internal/data/history"
	"io"
	"strings"
	"time"
)

func runCommand(ctx context.Context, svc ports.BuildService, name string, args []string, out io.Writer) error {
	switch name {
	case "check":
		path, err := svc.Check(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "antlr found: %s\n", path)
		return nil

	case "deps":
		if len(args) == 0 {
			return errors.New(errors.CodeValidationError, "deps needs at least one grammar file")
		}
		report, err := svc.Deps(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatDeps(report))
		return nil

	case "targets":
		if len(args) == 0 {
			return errors.New(errors.CodeValidationError, "targets needs at least one grammar file")
		}
		report, err := svc.Targets(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatTargets(report))
		return nil

	case "build":
		result, err := svc.Build(ctx, args)
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatBuild(result))
		return nil

	case "watch":
		if len(args) > 0 {
			return errors.New(errors.CodeValidationError, "watch takes no arguments")
		}
		return svc.Watch(ctx)

	case "history":
		fs := flag.NewFlagSet("history", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		since := fs.Duration("since", 0, "only show runs newer than this")
		limit := fs.Int("limit", 20, "maximum number of runs")
		if err := fs.Parse(args); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "parse history flags")
		}
		var from time.Time
		if *since > 0 {
			from = time.Now().Add(-*since)
		}
		runs, err := svc.History(ctx, from, *limit)
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatHistory(runs))
		return nil

	default:
		return errors.New(errors.CodeValidationError, "unknown command "+name)
	}
}

func formatDeps(report ports.DepsReport) string {
	var b strings.Builder
	for _, g := range report.Grammars {
		b.WriteString(fmt.Sprintf("%s (%d)\n", g.Source, len(g.Imports)))
		for i, imp := range g.Imports {
			b.WriteString(fmt.Sprintf("  - %s", imp))
			// Direct imports need no chain.
			if i < len(g.Chains) && len(g.Chains[i]) > 2 {
				b.WriteString(fmt.Sprintf("  (via %s)", strings.Join(g.Chains[i][1:len(g.Chains[i])-1], " -> ")))
			}
			b.WriteString("\n")
		}
	}
	if len(report.Cycles) > 0 {
		b.WriteString(fmt.Sprintf("\nImport cycles (%d)\n", len(report.Cycles)))
		for _, cycle := range report.Cycles {
			b.WriteString(fmt.Sprintf("  %s -> %s\n", strings.Join(cycle, " -> "), cycle[0]))
		}
	}
	return b.String()
}

func formatTargets(report ports.TargetsReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Targets (%d)\n", len(report.Targets)))
	for _, t := range report.Targets {
		b.WriteString(fmt.Sprintf("- %s\n", t))
	}
	b.WriteString(fmt.Sprintf("\nCommands (%d)\n", len(report.Commands)))
	for _, c := range report.Commands {
		b.WriteString(fmt.Sprintf("$ %s\n", c))
	}
	return b.String()
}

func formatBuild(result ports.BuildResult) string {
	var b strings.Builder
	for _, c := range result.Commands {
		b.WriteString(fmt.Sprintf("$ %s\n", c))
	}
	b.WriteString(fmt.Sprintf("built %d grammar(s), %d target(s) in %s\n",
		len(result.Sources), len(result.Targets), result.Duration.Round(time.Millisecond)))
	return b.String()
}

func formatHistory(runs []history.Run) string {
	if len(runs) == 0 {
		return "no recorded builds\n"
	}
	var b strings.Builder
	for _, run := range runs {
		b.WriteString(fmt.Sprintf("%s  %-6s  %3d source(s)  %3d target(s)  %s",
			run.Time.UTC().Format(time.DateTime), run.Status, len(run.Sources), len(run.Targets), run.Duration))
		if run.Error != "" {
			b.WriteString("  " + run.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}
