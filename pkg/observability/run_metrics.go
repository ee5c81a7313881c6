package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal    = "wdlrun.runs.total"
	metricTasksTotal   = "wdlrun.tasks.total"
	metricTaskAttempts = "wdlrun.task.attempts"
	attrTaskStatus     = "task_status"
)

// RunMetrics holds OTel instruments for execmgr.Manager's run/task
// bookkeeping, recorded once per completed run.
type RunMetrics struct {
	runsTotal    metric.Int64Counter
	tasksTotal   metric.Int64Counter
	taskAttempts metric.Int64Histogram
}

// RunStats summarizes one completed run's task outcomes, decoupled from
// wdlexec.RunResult so this package has no dependency on it.
type RunStats struct {
	TasksSucceeded int64
	TasksFailed    int64
	Attempts       []int
}

// NewRunMetrics creates run/task metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	runs, err := mt.Int64Counter(metricRunsTotal,
		metric.WithDescription("Total runs completed, by final status"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunsTotal, err)
	}

	tasks, err := mt.Int64Counter(metricTasksTotal,
		metric.WithDescription("Total task calls completed, by status"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTasksTotal, err)
	}

	attempts, err := mt.Int64Histogram(metricTaskAttempts,
		metric.WithDescription("Attempts taken per task call before its final status"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTaskAttempts, err)
	}

	return &RunMetrics{
		runsTotal:    runs,
		tasksTotal:   tasks,
		taskAttempts: attempts,
	}, nil
}

// RecordRun records one completed run's final status and its tasks'
// outcomes. Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) RecordRun(ctx context.Context, runStatus string, stats RunStats) {
	if rm == nil {
		return
	}

	rm.runsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, runStatus)))

	if stats.TasksSucceeded > 0 {
		rm.tasksTotal.Add(ctx, stats.TasksSucceeded,
			metric.WithAttributes(attribute.String(attrTaskStatus, "succeeded")))
	}

	if stats.TasksFailed > 0 {
		rm.tasksTotal.Add(ctx, stats.TasksFailed,
			metric.WithAttributes(attribute.String(attrTaskStatus, "failed")))
	}

	for _, n := range stats.Attempts {
		rm.taskAttempts.Record(ctx, int64(n))
	}
}
