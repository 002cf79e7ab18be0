package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgallion1/chatrelay/internal/config"
)

var (
	ErrQueueFull = errors.New("evaluation queue is full")
	ErrStopped   = errors.New("evaluation orchestrator stopped")
)

// Orchestrator runs evaluation jobs on a fixed pool of workers fed by a
// bounded queue.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	eval   *Evaluator
	logger *zap.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewOrchestrator(cfg config.Config, eval *Evaluator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		eval:   eval,
		logger: logger,
		cfg:    cfg,
	}
}

// Start launches the workers and the job cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range max(o.cfg.WorkerCount, 1) {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case now := <-ticker.C:
				o.jobs.Cleanup(now)
			}
		}
	}()
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.logger.With(zap.String("job_id", job.ID), zap.String("agent_id", job.AgentID))
	job.setStatus(StatusRunning)
	log.Info("evaluation started", zap.Int("questions", len(job.questions)))

	start := time.Now()
	results := o.eval.RunWithProgress(ctx, job.AgentID, job.questions, job.recordResult)
	if err := ctx.Err(); err != nil {
		job.fail(fmt.Sprintf("interrupted: %v", err))
		log.Warn("evaluation interrupted", zap.Error(err))
		return
	}
	job.complete(results)

	sum := Summarize(results)
	log.Info("evaluation completed",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// Stop cancels running jobs and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues an evaluation and returns its job.
func (o *Orchestrator) Submit(agentID string, questions []Question) (*Job, error) {
	job := NewJob(agentID, questions)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, ErrStopped
	}
	select {
	case o.queue <- job:
		o.jobs.Put(job)
		return job, nil
	default:
		return nil, fmt.Errorf("%w (%d)", ErrQueueFull, o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID, or nil.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns the number of jobs waiting for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
