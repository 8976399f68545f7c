package app

import (
	"context"
	"g4build/internal/core/ports"
	"g4build/internal/data/history"
	"g4build/internal/engine/antlr"
	"g4build/internal/engine/build"
	"g4build/internal/shared/observability"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Deps reports the grammars each source imports, directly or transitively,
// without launching the compiler.
func (a *App) Deps(ctx context.Context, files []string) (ports.DepsReport, error) {
	if err := a.requireTool("deps"); err != nil {
		return ports.DepsReport{}, err
	}
	_, env, executor, _ := a.current()

	sources, err := a.nodes(ctx, env, files)
	if err != nil {
		return ports.DepsReport{}, err
	}
	deps, imports, err := executor.Scan(ctx, sources)
	if err != nil {
		return ports.DepsReport{}, err
	}
	a.setImports(imports)

	report := ports.DepsReport{
		Grammars: make([]ports.GrammarDeps, 0, len(sources)),
		Cycles:   imports.DetectCycles(),
	}
	for _, src := range sources {
		found := deps[src.Path()]
		chains := make([][]string, 0, len(found))
		for _, dep := range found {
			chain, ok := imports.FindImportChain(src.SrcPath(), dep.SrcPath())
			if !ok {
				chain = []string{src.SrcPath(), dep.SrcPath()}
			}
			chains = append(chains, chain)
		}
		report.Grammars = append(report.Grammars, ports.GrammarDeps{
			Source:  src.Path(),
			Imports: build.Paths(found),
			Chains:  chains,
		})
	}
	return report, nil
}

// Targets asks the compiler which files each source produces and returns
// them with the generation commands, without running those commands.
func (a *App) Targets(ctx context.Context, files []string) (ports.TargetsReport, error) {
	if err := a.requireTool("targets"); err != nil {
		return ports.TargetsReport{}, err
	}
	_, env, executor, _ := a.current()

	sources, err := a.nodes(ctx, env, files)
	if err != nil {
		return ports.TargetsReport{}, err
	}
	plan, err := executor.Plan(ctx, antlr.BuilderName, sources)
	if err != nil {
		return ports.TargetsReport{}, err
	}
	a.setImports(plan.Imports)

	commands, err := executor.Commands(plan)
	if err != nil {
		return ports.TargetsReport{}, err
	}
	report := ports.TargetsReport{
		Sources:  build.Paths(plan.Sources),
		Targets:  build.Paths(plan.Targets),
		Commands: make([]string, 0, len(commands)),
	}
	for _, cmd := range commands {
		report.Commands = append(report.Commands, cmd.String())
	}
	return report, nil
}

// Build plans and runs the grammar builder over files, or over every
// discovered grammar when files is empty, and records the run.
func (a *App) Build(ctx context.Context, files []string) (ports.BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Build", trace.WithAttributes(
		attribute.Int("files", len(files)),
	))
	defer span.End()

	if err := a.requireTool("build"); err != nil {
		return ports.BuildResult{}, err
	}
	_, env, executor, _ := a.current()

	start := time.Now()
	sources, err := a.nodes(ctx, env, files)
	if err != nil {
		return ports.BuildResult{}, err
	}

	var (
		plan   *build.Plan
		result build.Result
	)
	plan, err = executor.Plan(ctx, antlr.BuilderName, sources)
	if err == nil {
		a.setImports(plan.Imports)
		result, err = executor.Execute(ctx, plan)
	}

	out := ports.BuildResult{
		Sources:  build.Paths(sources),
		Commands: result.Commands,
		Duration: time.Since(start),
	}
	if plan != nil {
		out.Targets = build.Paths(plan.Targets)
	}

	run := history.Run{
		Time:     start.UTC(),
		Builder:  antlr.BuilderName,
		Status:   history.StatusOK,
		Duration: out.Duration,
		Commands: len(result.Commands),
		Sources:  out.Sources,
		Targets:  out.Targets,
	}
	if err != nil {
		run.Status = history.StatusFailed
		run.Error = err.Error()
		observability.BuildsTotal.WithLabelValues("error").Inc()
	} else {
		observability.BuildsTotal.WithLabelValues("ok").Inc()
	}
	out.RunID = a.recordRun(run)

	if err != nil {
		return out, err
	}
	slog.Info("build finished", "sources", len(out.Sources), "targets", len(out.Targets), "duration", out.Duration)
	return out, nil
}

func (a *App) recordRun(run history.Run) string {
	if a.history == nil {
		return ""
	}
	id, err := a.history.SaveRun(run)
	if err != nil {
		slog.Warn("failed to record build run", "error", err)
		return ""
	}
	return id
}
