package history

import "time"

const SchemaVersion = 1

type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Run is one recorded invocation of a builder.
type Run struct {
	ID       string
	Time     time.Time
	Builder  string
	Status   Status
	Error    string
	Duration time.Duration
	Commands int
	Sources  []string
	Targets  []string
}
