package antlr

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"g4build/internal/core/errors"
	"g4build/internal/engine/build"
	"g4build/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dependDelimiter = " : "

// ParseDependReport returns, for each line of a -depend report that contains
// " : ", the text before the first delimiter. Other lines are skipped.
func ParseDependReport(stdout string) []string {
	var out []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if i := strings.Index(line, dependDelimiter); i != -1 {
			out = append(out, line[:i])
		}
	}
	return out
}

// Emit is the build.EmitterFunc for grammar files. The incoming targets are
// discarded; the compiler is asked, per source, which files it will write.
func Emit(ctx context.Context, _ []build.Node, sources []build.Node, env *build.Env) ([]build.Node, []build.Node, error) {
	settings := SettingsFrom(env)
	targets := []build.Node{}

	for _, src := range sources {
		cmd := BuildCommand(src, settings).WithDepend()
		paths, err := queryOutputs(ctx, env.Runner(), src, cmd)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range paths {
			targets = append(targets, build.NewNode(p))
		}
	}

	observability.TargetsEmittedTotal.Add(float64(len(targets)))
	return targets, sources, nil
}

func queryOutputs(ctx context.Context, runner build.Runner, src build.Node, cmd CommandLine) ([]string, error) {
	ctx, span := observability.Tracer.Start(ctx, "antlr.depend", trace.WithAttributes(
		attribute.String("source", src.Path()),
	))
	defer span.End()

	line := cmd.String()
	slog.Debug("querying outputs", "command", line)

	start := time.Now()
	stdout, err := runner.Run(ctx, cmd.Argv())
	observability.ToolDuration.WithLabelValues("depend").Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ToolInvocationsTotal.WithLabelValues("depend", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "depend failed")
		slog.Error("dependency query failed", "source", src.Path(), "error", err)

		derr := errors.Wrap(err, errors.CodeToolFailed, "antlr -depend failed")
		derr = errors.AddContext(derr, errors.CtxSource, src.Path())
		return nil, errors.AddContext(derr, errors.CtxCommand, line)
	}
	observability.ToolInvocationsTotal.WithLabelValues("depend", "ok").Inc()

	paths := ParseDependReport(stdout)
	span.SetAttributes(attribute.Int("outputs", len(paths)))
	return paths, nil
}
