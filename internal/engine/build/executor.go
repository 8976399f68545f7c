package build

import (
	"context"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"g4build/internal/core/errors"
	"g4build/internal/engine/graph"
	"g4build/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Plan is everything known about a build step before any command runs.
type Plan struct {
	Builder string
	Sources []Node
	Targets []Node
	// Deps holds the implicit dependencies of each source, keyed by the
	// source's build path, in discovery order.
	Deps    map[string][]Node
	Imports *graph.Graph
	Cycles  [][]string
}

// Result reports what Execute ran.
type Result struct {
	Commands []string
	Duration time.Duration
}

type Executor struct {
	env *Env
}

func NewExecutor(env *Env) *Executor {
	return &Executor{env: env}
}

// Scan runs the registered scanners over sources and, recursively, over every
// dependency they find that exists on disk.
func (x *Executor) Scan(ctx context.Context, sources []Node) (map[string][]Node, *graph.Graph, error) {
	_, span := observability.Tracer.Start(ctx, "build.Scan", trace.WithAttributes(
		attribute.Int("sources", len(sources)),
	))
	defer span.End()

	imports := graph.NewGraph()
	deps := make(map[string][]Node, len(sources))

	for _, src := range sources {
		visited := map[string]bool{src.SrcPath(): true}
		seenDep := make(map[string]bool)
		queue := []Node{src}
		var found []Node

		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]

			scanner, ok := x.env.ScannerFor(node.Path())
			if !ok {
				continue
			}
			if node.SrcPath() != src.SrcPath() && !node.Exists() {
				// Reported as a missing source by Execute.
				continue
			}

			nodeDeps, err := scanner.Func(node, x.env, nil)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "scan failed")
				code := errors.CodeInternal
				if errors.Is(err, fs.ErrNotExist) {
					code = errors.CodeNotFound
				}
				err = errors.Wrap(err, code, "scan "+scanner.Name)
				return nil, nil, errors.AddContext(err, errors.CtxPath, node.SrcPath())
			}
			observability.ImportsScannedTotal.Add(float64(len(nodeDeps)))

			edges := make([]string, len(nodeDeps))
			for i, dep := range nodeDeps {
				edges[i] = dep.SrcPath()
			}
			imports.AddGrammar(node.SrcPath(), edges)

			for _, dep := range nodeDeps {
				if !seenDep[dep.SrcPath()] {
					seenDep[dep.SrcPath()] = true
					found = append(found, dep)
				}
				if !visited[dep.SrcPath()] {
					visited[dep.SrcPath()] = true
					queue = append(queue, dep)
				}
			}
		}
		deps[src.Path()] = found
	}

	return deps, imports, nil
}

// Plan scans sources and asks builder's emitter for the targets.
func (x *Executor) Plan(ctx context.Context, builderName string, sources []Node) (*Plan, error) {
	ctx, span := observability.Tracer.Start(ctx, "build.Plan", trace.WithAttributes(
		attribute.String("builder", builderName),
	))
	defer span.End()
	start := time.Now()
	defer func() { observability.PlanDuration.Observe(time.Since(start).Seconds()) }()

	builder, ok := x.env.Builder(builderName)
	if !ok {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "unknown builder "+builderName), errors.CtxOperation, "plan")
	}
	if len(sources) == 0 {
		return nil, errors.New(errors.CodeValidationError, "no sources given to "+builderName)
	}
	for _, src := range sources {
		if builder.SrcSuffix != "" && !strings.EqualFold(suffixOf(src.Path()), builder.SrcSuffix) {
			err := errors.New(errors.CodeValidationError, "source does not have suffix "+builder.SrcSuffix)
			return nil, errors.AddContext(err, errors.CtxPath, src.Path())
		}
	}

	deps, imports, err := x.Scan(ctx, sources)
	if err != nil {
		return nil, err
	}

	cycles := imports.DetectCycles()
	observability.ImportCycles.Set(float64(len(cycles)))
	for _, cycle := range cycles {
		slog.Warn("grammar import cycle", "cycle", strings.Join(cycle, " -> "))
	}

	for _, src := range sources {
		if err := src.Materialize(); err != nil {
			code := errors.CodeInternal
			if errors.Is(err, fs.ErrNotExist) {
				code = errors.CodeNotFound
			}
			return nil, errors.AddContext(errors.Wrap(err, code, "copy source into variant dir"), errors.CtxPath, src.SrcPath())
		}
	}

	targets := defaultTargets(sources, builder.SrcSuffix)
	if builder.Emitter != nil {
		targets, sources, err = builder.Emitter(ctx, targets, sources, x.env)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "emit failed")
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("targets", len(targets)))

	return &Plan{
		Builder: builderName,
		Sources: sources,
		Targets: targets,
		Deps:    deps,
		Imports: imports,
		Cycles:  cycles,
	}, nil
}

// Execute checks that every implicit dependency exists and then runs the
// builder's commands in order, stopping at the first failure.
func (x *Executor) Execute(ctx context.Context, plan *Plan) (Result, error) {
	ctx, span := observability.Tracer.Start(ctx, "build.Execute", trace.WithAttributes(
		attribute.String("builder", plan.Builder),
	))
	defer span.End()
	start := time.Now()

	builder, ok := x.env.Builder(plan.Builder)
	if !ok {
		return Result{}, errors.New(errors.CodeValidationError, "unknown builder "+plan.Builder)
	}

	for _, src := range plan.Sources {
		for _, dep := range plan.Deps[src.Path()] {
			if dep.Exists() {
				continue
			}
			err := errors.New(errors.CodeNotFound, "missing source")
			err = errors.AddContext(err, errors.CtxPath, dep.SrcPath())
			return Result{}, errors.AddContext(err, errors.CtxSource, src.Path())
		}
	}

	commands, err := x.generate(builder, plan)
	if err != nil {
		return Result{}, err
	}

	result := Result{Commands: make([]string, 0, len(commands))}
	for _, cmd := range commands {
		line := cmd.String()
		slog.Debug("running", "command", line)

		cmdStart := time.Now()
		_, err := x.env.Runner().Run(ctx, cmd.Argv())
		observability.ToolDuration.WithLabelValues("generate").Observe(time.Since(cmdStart).Seconds())
		if err != nil {
			observability.ToolInvocationsTotal.WithLabelValues("generate", "error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "command failed")
			return result, errors.AddContext(errors.Wrap(err, errors.CodeToolFailed, "command failed"), errors.CtxCommand, line)
		}
		observability.ToolInvocationsTotal.WithLabelValues("generate", "ok").Inc()
		result.Commands = append(result.Commands, line)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// Commands returns the command lines Execute would run for plan, without
// running them.
func (x *Executor) Commands(plan *Plan) ([]Command, error) {
	builder, ok := x.env.Builder(plan.Builder)
	if !ok {
		return nil, errors.New(errors.CodeValidationError, "unknown builder "+plan.Builder)
	}
	return x.generate(builder, plan)
}

func (x *Executor) generate(builder Builder, plan *Plan) ([]Command, error) {
	if builder.Generator == nil {
		return nil, nil
	}
	commands, err := builder.Generator(plan.Sources, plan.Targets, x.env, false)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate commands for "+plan.Builder)
	}
	return commands, nil
}

// defaultTargets is the guess made when a builder has no emitter: the source
// path with its suffix removed.
func defaultTargets(sources []Node, suffix string) []Node {
	out := make([]Node, len(sources))
	for i, src := range sources {
		path := src.Path()
		if suffix != "" && strings.EqualFold(suffixOf(path), suffix) {
			path = path[:len(path)-len(suffix)]
		}
		out[i] = NewNode(path)
	}
	return out
}

func suffixOf(path string) string {
	i := strings.LastIndex(path, ".")
	if i < 0 || strings.ContainsAny(path[i:], `/\`) {
		return ""
	}
	return path[i:]
}
