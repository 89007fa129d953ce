// Package jobs provides scheduled background tasks for the order admin service.
//
// Jobs are cron-based (github.com/robfig/cron/v3, six-field expressions with seconds)
// and are started and stopped together through JobManager:
//
//	jobManager := jobs.NewJobManager(logger)
//	jobManager.Register("metrics flush", jobs.NewMetricsFlushJob(sink, cfg.MetricsFlushSchedule, logger))
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Available Jobs
//
// MetricsFlushJob pushes measurements buffered by a flushable metrics sink (CloudWatch)
// to its backend. A run that is still going when the next one is due is skipped.
// Failed flushes are logged and the data stays buffered for the next run.
package jobs
