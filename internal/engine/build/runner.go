package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner launches a process and returns what it wrote to stdout.
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
}

// RunError describes a process that could not be launched or exited non-zero.
type RunError struct {
	Argv     []string
	ExitCode int // -1 when the process never started
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Argv[0], e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// ExecRunner runs commands directly, without a shell, in Dir.
type ExecRunner struct {
	Dir string
}

func (r ExecRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", &RunError{Argv: []string{"<empty>"}, ExitCode: -1, Err: errors.New("empty command")}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.String(), &RunError{
			Argv:     append([]string(nil), argv...),
			ExitCode: code,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}
	return stdout.String(), nil
}
