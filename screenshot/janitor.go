package screenshot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor sweeps expired files out of a FileStore on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	store  *FileStore
	maxAge time.Duration
}

// NewJanitor parses schedule (standard five-field cron or a descriptor
// such as "@hourly"). Call Start to begin sweeping.
func NewJanitor(store *FileStore, schedule string, maxAge time.Duration) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
	}
	if _, err := j.cron.AddFunc(schedule, j.Sweep); err != nil {
		return nil, fmt.Errorf("screenshot: invalid cleanup schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() { <-j.cron.Stop().Done() }

// Sweep removes files older than the retention age once.
func (j *Janitor) Sweep() {
	removed, err := j.store.Cleanup(j.maxAge)
	if err != nil {
		slog.Warn("screenshot sweep failed", "dir", j.store.Dir(), "error", err)
		return
	}
	if removed > 0 {
		slog.Info("screenshot sweep", "dir", j.store.Dir(), "removed", removed)
	}
}
