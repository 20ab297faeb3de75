package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/cron"
)

// Runner drives time-triggered work from cron expressions. The core
// services expose plain synchronous entry points; the Runner is the only
// component that knows about wall-clock cadence.
type Runner struct {
	logger *slog.Logger
	jobs   []job
}

type job struct {
	name  string
	sched cron.Schedule
	run   func(ctx context.Context, now time.Time)
}

// NewRunner builds an empty runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Add registers a job under a 5-field cron expression.
func (r *Runner) Add(name, expr string, run func(ctx context.Context, now time.Time)) error {
	sched, err := cron.Parse(expr)
	if err != nil {
		return err
	}
	r.jobs = append(r.jobs, job{name: name, sched: sched, run: run})
	return nil
}

// Start launches one goroutine per job. The goroutines exit when ctx is
// cancelled.
func (r *Runner) Start(ctx context.Context) {
	for _, j := range r.jobs {
		go r.loop(ctx, j)
	}
}

func (r *Runner) loop(ctx context.Context, j job) {
	for {
		next, err := j.sched.Next(time.Now())
		if err != nil {
			r.logger.Error("cron schedule exhausted", "job", j.name, "error", err)
			return
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			r.logger.Debug("job tick", "job", j.name)
			j.run(ctx, now)
		}
	}
}
