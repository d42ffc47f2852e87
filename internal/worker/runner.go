package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RetryPolicy bounds how often a failing job is re-attempted.
type RetryPolicy struct {
	// MaxAttempts is the total number of executions allowed per job.
	MaxAttempts int

	// Interval is the fixed delay between attempts.
	Interval time.Duration
}

// Config holds configuration for the runner.
type Config struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// Retry is applied to every submitted job.
	Retry RetryPolicy

	// StuckJobAge defines how long a job can be in processing state
	// before it's considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs.
	// If zero, defaults to 5 minutes.
	StuckJobCheckInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:           2,
		QueueSize:             100,
		Retry:                 RetryPolicy{MaxAttempts: 6, Interval: 30 * time.Second},
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// execution carries a job through the channel together with how many times
// it has already been attempted.
type execution struct {
	job      Job
	attempts int
}

// Runner manages background job processing: persistence, worker goroutines,
// bounded retries and crash recovery.
type Runner struct {
	store      JobStore
	factory    JobFactory
	jobChan    chan *execution
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     Config
	logger     *slog.Logger

	// onAttemptFailure runs after every failed execution, exhausted or not.
	onAttemptFailure func(ctx context.Context, job Job, err error, attempts int)

	// onExhausted runs once retries are used up.
	onExhausted func(ctx context.Context, job Job, err error)
}

// NewRunner creates a new Runner. The factory is used to rebuild executable
// jobs from records persisted by a previous process.
func NewRunner(store JobStore, factory JobFactory, config Config, logger *slog.Logger) *Runner {
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry.MaxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		factory:    factory,
		jobChan:    make(chan *execution, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		onAttemptFailure: func(ctx context.Context, job Job, err error, attempts int) {
			logger.Error("job attempt failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"attempts", attempts,
				"error", err)
		},
		onExhausted: func(ctx context.Context, job Job, err error) {
			logger.Error("job abandoned after exhausting retries",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", err)
		},
	}
}

// SetAttemptFailureHandler sets the hook invoked after every failed attempt.
func (r *Runner) SetAttemptFailureHandler(handler func(ctx context.Context, job Job, err error, attempts int)) {
	r.onAttemptFailure = handler
}

// SetExhaustedHandler sets the hook invoked when a job runs out of retries.
func (r *Runner) SetExhaustedHandler(handler func(ctx context.Context, job Job, err error)) {
	r.onExhausted = handler
}

// Submit persists a new job and adds it to the queue.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	// Save to the store first so the job survives a crash between here and
	// the worker picking it up.
	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case r.jobChan <- &execution{job: job}:
		return nil
	default:
		return fmt.Errorf("job queue is full, try again later")
	}
}

// Start recovers unfinished jobs and launches the worker pool.
func (r *Runner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckJobMonitor()

	return nil
}

// Stop gracefully shuts down the runner. Pending retry timers are cancelled;
// their jobs stay pending in the store and are requeued on the next start.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
}

// Recover loads unfinished jobs from the store and requeues them.
// Processing jobs are assumed interrupted by a crash and reset to pending.
func (r *Runner) Recover() error {
	ctx := context.Background()

	pending, err := r.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, record := range processing {
		if err := r.store.UpdateJobStatus(ctx, record.ID, JobStatusPending, "reset after recovery", record.Attempts); err != nil {
			r.logger.Error("failed to reset processing job",
				"job_id", record.ID,
				"job_type", record.Type,
				"error", err)
			continue
		}
		pending = append(pending, record)
	}

	for _, record := range pending {
		job, err := r.factory.Rebuild(record)
		if err != nil {
			r.logger.Error("failed to rebuild recovered job",
				"job_id", record.ID,
				"job_type", record.Type,
				"error", err)
			continue
		}
		r.enqueue(&execution{job: job, attempts: record.Attempts})
	}

	return nil
}

// enqueue pushes an execution onto the channel, logging when the queue is full.
func (r *Runner) enqueue(e *execution) {
	select {
	case r.jobChan <- e:
	default:
		r.logger.Error("failed to requeue job, queue is full",
			"job_id", e.job.ID(),
			"job_type", e.job.Type())
	}
}

// worker processes jobs from the queue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case e := <-r.jobChan:
			r.processJob(e, id)
		}
	}
}

// processJob handles a single execution of a job, including scheduling the
// next retry on failure.
func (r *Runner) processJob(e *execution, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"job_id", e.job.ID(),
		"job_type", e.job.Type(),
		"worker_id", workerID,
		"attempt", e.attempts+1,
	)

	if err := r.store.UpdateJobStatus(ctx, e.job.ID(), JobStatusProcessing, "", e.attempts); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")

	err := e.job.Execute(ctx)
	if err == nil {
		logger.Info("job completed successfully")
		if updateErr := r.store.UpdateJobStatus(ctx, e.job.ID(), JobStatusCompleted, "", e.attempts+1); updateErr != nil {
			logger.Error("failed to update job status to completed", "error", updateErr)
		}
		return
	}

	attempts := e.attempts + 1
	logger.Error("job execution failed", "error", err)
	r.onAttemptFailure(ctx, e.job, err, attempts)

	if attempts >= r.config.Retry.MaxAttempts {
		if updateErr := r.store.UpdateJobStatus(ctx, e.job.ID(), JobStatusFailed, err.Error(), attempts); updateErr != nil {
			logger.Error("failed to update job status to failed", "error", updateErr)
		}
		r.onExhausted(ctx, e.job, err)
		return
	}

	// The job stays pending in the store while it waits for its next slot,
	// so a restart during the delay still redelivers it.
	if updateErr := r.store.UpdateJobStatus(ctx, e.job.ID(), JobStatusPending, err.Error(), attempts); updateErr != nil {
		logger.Error("failed to update job status to pending", "error", updateErr)
	}

	logger.Info("scheduling retry", "retry_in", r.config.Retry.Interval)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timer := time.NewTimer(r.config.Retry.Interval)
		defer timer.Stop()

		select {
		case <-r.ctx.Done():
		case <-timer.C:
			r.enqueue(&execution{job: e.job, attempts: attempts})
		}
	}()
}

// stuckJobMonitor periodically checks for jobs that have been in "processing"
// state for too long and resets them.
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()

			stuck, err := r.store.GetProcessingJobs(ctx, r.config.StuckJobAge)
			if err != nil {
				r.logger.Error("failed to check for stuck jobs", "error", err)
				continue
			}

			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck jobs", "count", len(stuck))

			for _, record := range stuck {
				if err := r.store.UpdateJobStatus(ctx, record.ID, JobStatusPending,
					"reset after being stuck in processing state", record.Attempts); err != nil {
					r.logger.Error("failed to reset stuck job",
						"job_id", record.ID,
						"job_type", record.Type,
						"error", err)
					continue
				}

				job, err := r.factory.Rebuild(record)
				if err != nil {
					r.logger.Error("failed to rebuild stuck job",
						"job_id", record.ID,
						"job_type", record.Type,
						"error", err)
					continue
				}
				r.enqueue(&execution{job: job, attempts: record.Attempts})
			}
		}
	}
}
