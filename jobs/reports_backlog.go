package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/editorialhouse/newsroom/internal/jobs"
)

// ReportCounter reports the size of the unreviewed report queue.
type ReportCounter interface {
	CountPendingReports(ctx context.Context) (int64, error)
}

// ReportsBacklogJob publishes the unreviewed report count as a gauge.
type ReportsBacklogJob struct {
	Counter ReportCounter
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportsBacklogJob wires dependencies for the backlog handler.
func NewReportsBacklogJob(counter ReportCounter, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsBacklogJob {
	return &ReportsBacklogJob{Counter: counter, Logger: logger, Metrics: metrics}
}

// Handle processes TaskReportsBacklog tasks.
func (j *ReportsBacklogJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Counter == nil {
		return errors.New("reports backlog: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskReportsBacklog)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	pending, err := j.Counter.CountPendingReports(ctx)
	if err != nil {
		logger(j.Logger).Error("count pending reports", slog.Any("error", err))
		return err
	}
	metrics.SetPendingReports(pending)
	if pending > 0 {
		logger(j.Logger).Info("reports awaiting review", slog.Int64("pending", pending))
	}
	return nil
}
