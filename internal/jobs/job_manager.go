package jobs

import (
	"fmt"
	"log/slog"
)

// Job is a scheduled background task.
type Job interface {
	Start() error
	Stop()
}

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	jobs   []namedJob
	logger *slog.Logger
}

type namedJob struct {
	name string
	job  Job
}

// NewJobManager creates an empty manager. Jobs are added with Register.
func NewJobManager(logger *slog.Logger) *JobManager {
	return &JobManager{logger: logger.With("component", "job_manager")}
}

// Register adds a job. Jobs start in registration order and stop in reverse.
func (jm *JobManager) Register(name string, job Job) {
	jm.jobs = append(jm.jobs, namedJob{name: name, job: job})
}

// StartAll starts all registered jobs.
// If one fails, the jobs already started are stopped again.
func (jm *JobManager) StartAll() error {
	for i, nj := range jm.jobs {
		if err := nj.job.Start(); err != nil {
			for k := i - 1; k >= 0; k-- {
				jm.jobs[k].job.Stop()
			}
			return fmt.Errorf("failed to start %s job: %w", nj.name, err)
		}
	}

	jm.logger.Info("Jobs started", "count", len(jm.jobs))
	return nil
}

// StopAll stops all registered jobs.
func (jm *JobManager) StopAll() {
	for i := len(jm.jobs) - 1; i >= 0; i-- {
		jm.jobs[i].job.Stop()
	}
}
