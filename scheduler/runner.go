package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"sattbot/service"
)

// Job is a named background task with a trigger. CatchUp jobs that missed
// an occurrence while the process was down fire once on startup.
type Job struct {
	Name    string
	Trigger Trigger
	CatchUp bool
	Run     func(ctx context.Context) error
}

// Runner drives registered jobs off a shared cron instance. Fire times are
// recorded durably before each run so a restart can tell which occurrences
// were missed.
type Runner struct {
	cron       *cron.Cron
	jobs       []Job
	uowFactory service.UnitOfWorkFactory

	// now is replaceable in tests
	now func() time.Time
}

// NewRunner creates a new job runner
func NewRunner(uowFactory service.UnitOfWorkFactory) *Runner {
	return &Runner{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// Register adds a job. Must be called before Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start fires catch-up runs for jobs that missed an occurrence, then begins
// normal scheduling. A job that never fired before counts as missed.
func (r *Runner) Start(ctx context.Context) error {
	for _, job := range r.jobs {
		if job.CatchUp {
			missed, err := r.missedOccurrence(ctx, job)
			if err != nil {
				return fmt.Errorf("failed to check catch-up for job %s: %w", job.Name, err)
			}
			if missed {
				log.WithField("job", job.Name).Info("Scheduler: firing missed occurrence on startup")
				// One catch-up run regardless of how many occurrences
				// were missed
				go r.runJob(job)
			}
		}

		job := job
		r.cron.Schedule(job.Trigger.Schedule(), cron.FuncJob(func() {
			r.runJob(job)
		}))

		log.WithFields(log.Fields{
			"job":     job.Name,
			"trigger": job.Trigger.String(),
		}).Info("Scheduler: registered job")
	}

	r.cron.Start()
	return nil
}

// Stop halts scheduling and waits for in-flight runs started by cron
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
}

// missedOccurrence reports whether the job's next occurrence after its last
// recorded fire already passed
func (r *Runner) missedOccurrence(ctx context.Context, job Job) (bool, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	state, err := uow.JobStateRepository().Get(ctx, job.Name)
	if err != nil {
		return false, err
	}
	if state == nil {
		return true, nil
	}

	next := job.Trigger.Schedule().Next(state.LastFiredAt)
	return !next.After(r.now()), nil
}

// runJob executes one occurrence. The fire time is recorded before the
// action runs, so a crash mid-action does not replay it on restart. Panics
// and errors are contained to the run.
func (r *Runner) runJob(job Job) {
	runID := uuid.New().String()
	logger := log.WithFields(log.Fields{
		"job":   job.Name,
		"runID": runID,
	})

	defer func() {
		if rec := recover(); rec != nil {
			logger.WithField("panic", rec).Error("Scheduler: job panicked")
		}
	}()

	ctx := context.Background()

	if err := r.recordFired(ctx, job.Name); err != nil {
		logger.WithError(err).Error("Scheduler: failed to record fire time, skipping run")
		return
	}

	started := r.now()
	logger.Info("Scheduler: job started")

	if err := job.Run(ctx); err != nil {
		logger.WithError(err).Error("Scheduler: job failed")
		return
	}

	logger.WithField("duration", r.now().Sub(started)).Info("Scheduler: job finished")
}

func (r *Runner) recordFired(ctx context.Context, jobName string) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.JobStateRepository().Upsert(ctx, jobName, r.now()); err != nil {
		return err
	}
	return uow.Commit()
}
