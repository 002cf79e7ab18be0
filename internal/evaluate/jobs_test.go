package evaluate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dgallion1/chatrelay/internal/config"
)

func TestJob_ProgressAndCompletion(t *testing.T) {
	job := NewJob("agent", QuestionsFromTexts([]string{"a", "b", "c"}))

	snap := job.Snapshot()
	assert.Equal(t, StatusQueued, snap.Status)
	assert.Equal(t, Progress{Total: 3}, snap.Progress)
	assert.Len(t, snap.ID, 36)

	_, ok := job.Results()
	assert.False(t, ok)

	job.setStatus(StatusRunning)
	job.recordResult(Result{Status: StatusSuccess})
	job.recordResult(Result{Status: StatusSkipped})
	job.recordResult(Result{Status: "Error: x"})
	job.complete([]Result{{Status: StatusSuccess}})

	snap = job.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, Progress{Total: 3, Answered: 1, Skipped: 1, Failed: 1}, snap.Progress)

	results, ok := job.Results()
	require.True(t, ok)
	assert.Len(t, results, 1)
}

func TestJob_Fail(t *testing.T) {
	job := NewJob("agent", nil)
	job.fail("interrupted")
	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "interrupted", snap.Error)
}

func TestJobStore_Cleanup(t *testing.T) {
	store := NewJobStore(time.Minute)
	old := NewJob("a", nil)
	fresh := NewJob("a", nil)
	store.Put(old)
	store.Put(fresh)

	old.mu.Lock()
	old.updatedAt = time.Now().Add(-2 * time.Minute)
	old.mu.Unlock()

	store.Cleanup(time.Now())
	assert.Nil(t, store.Get(old.ID))
	assert.Same(t, fresh, store.Get(fresh.ID))
	assert.Equal(t, 1, store.Len())
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4
	return cfg
}

func waitForStatus(t *testing.T, job *Job, want JobStatus) JobSnapshot {
	t.Helper()
	var snap JobSnapshot
	require.Eventually(t, func() bool {
		snap = job.Snapshot()
		return snap.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestOrchestrator_RunsSubmittedJobs(t *testing.T) {
	log := zaptest.NewLogger(t)
	o := NewOrchestrator(testConfig(), newTestEvaluator(t, newFakeAsker(), 2), log)
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Submit("agent-1", QuestionsFromTexts([]string{"q1", "", "q2"}))
	require.NoError(t, err)
	assert.Same(t, job, o.GetJob(job.ID))

	snap := waitForStatus(t, job, StatusCompleted)
	assert.Equal(t, Progress{Total: 3, Answered: 2, Skipped: 1}, snap.Progress)

	results, ok := job.Results()
	require.True(t, ok)
	assert.Equal(t, "A:q1@agent-1", results[0].Answer)
	assert.Equal(t, StatusSkipped, results[1].Status)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, newTestEvaluator(t, newFakeAsker(), 1), zaptest.NewLogger(t))
	// Workers are not started, so the queue never drains.
	defer o.Stop()

	_, err := o.Submit("a", nil)
	require.NoError(t, err)
	_, err = o.Submit("a", nil)
	assert.True(t, errors.Is(err, ErrQueueFull))
	assert.Equal(t, 1, o.QueueDepth())
}

func TestOrchestrator_StopInterruptsRunningJob(t *testing.T) {
	asker := newFakeAsker()
	asker.delay = func(string) time.Duration { return time.Minute }
	o := NewOrchestrator(testConfig(), newTestEvaluator(t, asker, 1), zaptest.NewLogger(t))
	o.Start(context.Background())

	job, err := o.Submit("a", QuestionsFromTexts([]string{"slow"}))
	require.NoError(t, err)
	waitForStatus(t, job, StatusRunning)

	o.Stop()
	snap := job.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Error, "interrupted")

	_, err = o.Submit("a", nil)
	assert.ErrorIs(t, err, ErrStopped)
	o.Stop()
}
