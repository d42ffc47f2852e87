package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbital-hq/taskboard-api/internal/platform/memory"
	"github.com/orbital-hq/taskboard-api/internal/worker"
)

// stubJob is a controllable job for exercising the runner.
type stubJob struct {
	id       uuid.UUID
	execFunc func(ctx context.Context) error
	runs     atomic.Int32
}

func newStubJob(execFunc func(ctx context.Context) error) *stubJob {
	return &stubJob{id: uuid.New(), execFunc: execFunc}
}

func (j *stubJob) ID() uuid.UUID   { return j.id }
func (j *stubJob) Type() string    { return "stub" }
func (j *stubJob) Payload() []byte { return []byte(`{}`) }

func (j *stubJob) Execute(ctx context.Context) error {
	j.runs.Add(1)
	if j.execFunc != nil {
		return j.execFunc(ctx)
	}
	return nil
}

// stubFactory rebuilds stub jobs with a shared exec func.
type stubFactory struct {
	execFunc func(ctx context.Context) error
	rebuilt  atomic.Int32
}

func (f *stubFactory) Rebuild(record worker.Record) (worker.Job, error) {
	if record.Type != "stub" {
		return nil, errors.New("unknown job type")
	}
	f.rebuilt.Add(1)
	return &stubJob{id: record.ID, execFunc: f.execFunc}, nil
}

func testConfig() worker.Config {
	return worker.Config{
		WorkerCount:           1,
		QueueSize:             10,
		Retry:                 worker.RetryPolicy{MaxAttempts: 3, Interval: 10 * time.Millisecond},
		StuckJobAge:           time.Hour,
		StuckJobCheckInterval: time.Hour,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerCompletesSubmittedJob(t *testing.T) {
	store := memory.NewJobStore()
	factory := &stubFactory{}
	runner := worker.NewRunner(store, factory, testConfig(), discardLogger())

	done := make(chan struct{})
	job := newStubJob(func(ctx context.Context) error {
		close(done)
		return nil
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	assert.Eventually(t, func() bool {
		pending, _ := store.GetPendingJobs(context.Background())
		processing, _ := store.GetProcessingJobs(context.Background(), 0)
		return len(pending) == 0 && len(processing) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerRetriesUntilSuccess(t *testing.T) {
	store := memory.NewJobStore()
	factory := &stubFactory{}
	runner := worker.NewRunner(store, factory, testConfig(), discardLogger())

	var failures atomic.Int32
	runner.SetAttemptFailureHandler(func(ctx context.Context, job worker.Job, err error, attempts int) {
		failures.Add(1)
	})

	done := make(chan struct{})
	var once sync.Once
	job := newStubJob(nil)
	job.execFunc = func(ctx context.Context) error {
		if job.runs.Load() < 3 {
			return errors.New("transient")
		}
		once.Do(func() { close(done) })
		return nil
	}

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}

	assert.Equal(t, int32(2), failures.Load())
}

func TestRunnerExhaustsRetries(t *testing.T) {
	store := memory.NewJobStore()
	factory := &stubFactory{}
	cfg := testConfig()
	cfg.Retry.MaxAttempts = 2
	runner := worker.NewRunner(store, factory, cfg, discardLogger())

	var failures atomic.Int32
	runner.SetAttemptFailureHandler(func(ctx context.Context, job worker.Job, err error, attempts int) {
		failures.Add(1)
	})

	exhausted := make(chan worker.Job, 1)
	runner.SetExhaustedHandler(func(ctx context.Context, job worker.Job, err error) {
		exhausted <- job
	})

	job := newStubJob(func(ctx context.Context) error {
		return errors.New("permanent")
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.NoError(t, runner.Submit(context.Background(), job))

	select {
	case abandoned := <-exhausted:
		assert.Equal(t, job.ID(), abandoned.ID())
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted handler never fired")
	}

	assert.Equal(t, int32(2), failures.Load())
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestRunnerRecoversPersistedJobs(t *testing.T) {
	store := memory.NewJobStore()
	ctx := context.Background()

	interrupted := newStubJob(nil)
	require.NoError(t, store.SaveJob(ctx, interrupted))
	require.NoError(t, store.UpdateJobStatus(ctx, interrupted.ID(), worker.JobStatusProcessing, "", 1))

	waiting := newStubJob(nil)
	require.NoError(t, store.SaveJob(ctx, waiting))

	factory := &stubFactory{}

	runner := worker.NewRunner(store, factory, testConfig(), discardLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	assert.Eventually(t, func() bool {
		return factory.rebuilt.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		pending, _ := store.GetPendingJobs(ctx)
		processing, _ := store.GetProcessingJobs(ctx, 0)
		return len(pending) == 0 && len(processing) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	store := memory.NewJobStore()
	factory := &stubFactory{}
	cfg := testConfig()
	cfg.QueueSize = 1
	runner := worker.NewRunner(store, factory, cfg, discardLogger())

	// Not started: nothing drains the queue.
	require.NoError(t, runner.Submit(context.Background(), newStubJob(nil)))

	err := runner.Submit(context.Background(), newStubJob(nil))
	assert.Error(t, err)
}

func TestCardSyncJobPayloadRoundTrip(t *testing.T) {
	taskID := uuid.New()
	userID := uuid.New()

	syncer := &recordingSyncer{}
	job, err := worker.NewCardSyncJob(taskID, userID, syncer, discardLogger())
	require.NoError(t, err)

	var payload struct {
		TaskID uuid.UUID `json:"task_id"`
		UserID uuid.UUID `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(job.Payload(), &payload))
	assert.Equal(t, taskID, payload.TaskID)
	assert.Equal(t, userID, payload.UserID)
}

type recordingSyncer struct {
	taskIDs []uuid.UUID
	userIDs []uuid.UUID
	err     error
}

func (s *recordingSyncer) SyncTask(ctx context.Context, taskID, userID uuid.UUID) error {
	s.taskIDs = append(s.taskIDs, taskID)
	s.userIDs = append(s.userIDs, userID)
	return s.err
}

func TestCardSyncJobExecuteInvokesSyncer(t *testing.T) {
	taskID := uuid.New()
	userID := uuid.New()

	syncer := &recordingSyncer{}
	job, err := worker.NewCardSyncJob(taskID, userID, syncer, discardLogger())
	require.NoError(t, err)

	require.NoError(t, job.Execute(context.Background()))
	require.Len(t, syncer.taskIDs, 1)
	assert.Equal(t, taskID, syncer.taskIDs[0])
	assert.Equal(t, userID, syncer.userIDs[0])
}

func TestCardSyncJobFactoryRebuild(t *testing.T) {
	taskID := uuid.New()
	userID := uuid.New()

	syncer := &recordingSyncer{}
	original, err := worker.NewCardSyncJob(taskID, userID, syncer, discardLogger())
	require.NoError(t, err)

	factory, err := worker.NewCardSyncJobFactory(syncer, discardLogger())
	require.NoError(t, err)

	record := worker.Record{
		ID:      original.ID(),
		Type:    original.Type(),
		Payload: original.Payload(),
		Status:  worker.JobStatusPending,
	}
	rebuilt, err := factory.Rebuild(record)
	require.NoError(t, err)

	assert.Equal(t, original.ID(), rebuilt.ID())
	require.NoError(t, rebuilt.Execute(context.Background()))
	require.Len(t, syncer.taskIDs, 1)
	assert.Equal(t, taskID, syncer.taskIDs[0])

	_, err = factory.Rebuild(worker.Record{Type: "unknown"})
	assert.ErrorIs(t, err, worker.ErrUnknownJobType)
}
