package extractor

import (
	"fmt"
	"time"
)

// Trace levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Trace is the ordered diagnostic log of one extraction run. Each line is
// stamped with the injected clock. Not safe for concurrent use.
type Trace struct {
	now   func() time.Time
	lines []string
}

// NewTrace creates an empty trace. A nil clock means time.Now.
func NewTrace(now func() time.Time) *Trace {
	if now == nil {
		now = time.Now
	}
	return &Trace{now: now, lines: []string{}}
}

func (t *Trace) add(level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.lines = append(t.lines, fmt.Sprintf("%s [%s] %s", t.now().UTC().Format(time.RFC3339), level, msg))
}

// Info records a progress line.
func (t *Trace) Info(format string, args ...any) { t.add(LevelInfo, format, args...) }

// Warn records a non-fatal problem.
func (t *Trace) Warn(format string, args ...any) { t.add(LevelWarn, format, args...) }

// Error records a failure that aborted the run.
func (t *Trace) Error(format string, args ...any) { t.add(LevelError, format, args...) }

// Lines returns a copy of the recorded lines.
func (t *Trace) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
