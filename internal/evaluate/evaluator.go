package evaluate

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Asker sends one question to an agent.
type Asker interface {
	Ask(ctx context.Context, agentID, question string) (string, error)
}

// Evaluator sends question sets to an agent with bounded concurrency.
type Evaluator struct {
	asker       Asker
	concurrency int
	logger      *zap.Logger
	backoff     func(attempt int) time.Duration
}

func NewEvaluator(asker Asker, concurrency int, logger *zap.Logger) *Evaluator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Evaluator{
		asker:       asker,
		concurrency: concurrency,
		logger:      logger,
		backoff:     Backoff,
	}
}

// Run evaluates questions and returns one result per question, in input
// order. It never fails as a whole; per-question errors land in Status.
func (e *Evaluator) Run(ctx context.Context, agentID string, questions []Question) []Result {
	return e.RunWithProgress(ctx, agentID, questions, nil)
}

// RunWithProgress is Run with a callback invoked as each result is ready.
// The callback may be called from several goroutines at once.
func (e *Evaluator) RunWithProgress(ctx context.Context, agentID string, questions []Question, onResult func(Result)) []Result {
	results := make([]Result, len(questions))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, q := range questions {
		g.Go(func() error {
			results[i] = e.evaluate(ctx, agentID, q)
			if onResult != nil {
				onResult(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Evaluator) evaluate(ctx context.Context, agentID string, q Question) Result {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return Result{Question: q, Status: StatusSkipped}
	}

	var (
		answer string
		err    error
	)
	for attempt := range MaxAttempts {
		if err = ctx.Err(); err != nil {
			break
		}
		answer, err = e.asker.Ask(ctx, agentID, q.Text)
		if err == nil || !IsRetryable(err) || attempt == MaxAttempts-1 {
			break
		}
		wait := e.backoff(attempt)
		e.logger.Warn("retryable agent error",
			zap.String("agent_id", agentID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
	}

	if err != nil {
		e.logger.Info("question failed", zap.String("agent_id", agentID), zap.Error(err))
		return Result{Question: q, Status: ErrorStatus(err)}
	}
	return Result{Question: q, Answer: answer, Status: StatusSuccess}
}
