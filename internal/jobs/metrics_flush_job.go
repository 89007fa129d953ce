package jobs

import (
	"context"
	"log/slog"
	"time"

	"orderadmin/internal/core/ports"

	"github.com/robfig/cron/v3"
)

// DefaultFlushSchedule flushes buffered metrics once a minute.
const DefaultFlushSchedule = "0 * * * * *"

// flushTimeout caps a single flush so a slow exporter cannot pile up runs.
const flushTimeout = 20 * time.Second

// MetricsFlushJob periodically pushes buffered measurements to the metrics backend.
type MetricsFlushJob struct {
	sink     ports.FlushableMetricsSink
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewMetricsFlushJob creates a job flushing sink on schedule, a six-field cron
// expression with seconds. An empty schedule means DefaultFlushSchedule.
func NewMetricsFlushJob(sink ports.FlushableMetricsSink, schedule string, logger *slog.Logger) *MetricsFlushJob {
	if schedule == "" {
		schedule = DefaultFlushSchedule
	}
	return &MetricsFlushJob{
		sink:     sink,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.With("component", "metrics_flush_job"),
	}
}

// Start schedules the flush.
func (j *MetricsFlushJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, j.Run); err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Metrics flush job started", "schedule", j.schedule)
	return nil
}

// Run performs one flush.
func (j *MetricsFlushJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := j.sink.Flush(ctx); err != nil {
		j.logger.ErrorContext(ctx, "Metrics flush failed", "error", err)
	}
}

// Stop stops scheduling and flushes what is left once more.
func (j *MetricsFlushJob) Stop() {
	<-j.cron.Stop().Done()
	j.Run()
	j.logger.InfoContext(context.Background(), "Metrics flush job stopped")
}
