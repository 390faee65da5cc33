// Package jobs runs the externally triggered sweeps. Each run is independent and idempotent.
package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/notification"
	"github.com/trezcool/mahudhurio/core/report"
)

// Job names
const (
	CompleteClasses      = "complete-classes"
	CleanupNotifications = "cleanup-notifications"
	DispatchReports      = "dispatch-reports"
)

var (
	ErrUnknownJob = core.NewNotFoundError("job")

	runsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mahudhurio_job_runs_total",
		Help: "Job runs, by job and outcome.",
	}, []string{"job", "outcome"})
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "mahudhurio_job_duration_seconds",
		Help: "Job run durations.",
	}, []string{"job"})

	nowFunc = time.Now // mockable
)

type Result struct {
	Job      string `json:"job"`
	Affected int    `json:"affected"`
}

type Runner struct {
	jobs   map[string]func(ctx context.Context, now time.Time) (int, error)
	logger core.Logger
}

func NewRunner(classSvc class.Service, notificationSvc notification.Service, reports *report.Dispatcher, logger core.Logger) *Runner {
	return &Runner{
		jobs: map[string]func(context.Context, time.Time) (int, error){
			CompleteClasses:      classSvc.CompleteExpired,
			CleanupNotifications: notificationSvc.Cleanup,
			DispatchReports:      reports.Dispatch,
		},
		logger: logger,
	}
}

// Names lists the known jobs, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Runner) Run(ctx context.Context, name string) (Result, error) {
	job, ok := r.jobs[name]
	if !ok {
		return Result{}, ErrUnknownJob
	}

	start := nowFunc()
	affected, err := job(ctx, start)
	runDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		runsCounter.WithLabelValues(name, "failure").Inc()
		return Result{}, errors.Wrapf(err, "running %s", name)
	}
	runsCounter.WithLabelValues(name, "success").Inc()
	r.logger.Info("jobs.Run: "+name+" done", map[string]interface{}{"affected": affected})
	return Result{Job: name, Affected: affected}, nil
}
