package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/editorialhouse/newsroom/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SessionPruner deletes login sessions past their expiry.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// SessionsPruneJob removes expired login sessions.
type SessionsPruneJob struct {
	Pruner  SessionPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSessionsPruneJob wires dependencies for the prune handler.
func NewSessionsPruneJob(pruner SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPruneJob {
	return &SessionsPruneJob{Pruner: pruner, Logger: logger, Metrics: metrics}
}

// Handle processes TaskSessionsPrune tasks.
func (j *SessionsPruneJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("sessions prune: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskSessionsPrune)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Pruner.PruneSessions(ctx)
	if err != nil {
		logger(j.Logger).Error("prune login sessions", slog.Any("error", err))
		return err
	}
	metrics.AddPrunedSessions(removed)
	logger(j.Logger).Info("login sessions pruned", slog.Int64("removed", removed))
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
