package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-evalflow/internal/domain"
	"github.com/ahrav/go-evalflow/internal/ports"
)

// DefaultEvaluatorTimeout bounds a single evaluator's judge call when no
// timeout is configured.
const DefaultEvaluatorTimeout = 30 * time.Second

// Orchestrator fans one generated response out to all configured evaluators
// concurrently and merges their outcomes by metric name.
//
// Failure isolation is the core invariant: each evaluator runs under its
// own timeout, and an evaluator erroring, timing out, or panicking degrades
// only its own metrics. Total latency is bounded by the slowest evaluator
// plus the timeout margin, never by the sum of evaluator latencies.
type Orchestrator struct {
	evaluators []ports.Evaluator
	timeout    time.Duration
	logger     *zap.Logger
	metrics    ports.MetricsCollector
}

// NewOrchestrator creates an Orchestrator over the given evaluators.
// A zero timeout falls back to DefaultEvaluatorTimeout; a nil logger is
// replaced with a no-op one.
func NewOrchestrator(
	evaluators []ports.Evaluator,
	timeout time.Duration,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*Orchestrator, error) {
	if len(evaluators) == 0 {
		return nil, fmt.Errorf("at least one evaluator is required")
	}
	if timeout <= 0 {
		timeout = DefaultEvaluatorTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		evaluators: evaluators,
		timeout:    timeout,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Run executes every evaluator concurrently against the generated response
// and collects all outcomes, successful or not, keyed by metric name.
//
// Run never returns an error: partial results are valid results. Every
// metric named by every evaluator is guaranteed a key in the returned map.
func (o *Orchestrator) Run(
	ctx context.Context,
	response string,
	req domain.NormalizedRequest,
) map[string]domain.EvaluationOutcome {
	var mu sync.Mutex
	merged := make(map[string]domain.EvaluationOutcome)

	// errgroup without a derived context: a failing evaluator must not
	// cancel its siblings. Tasks always return nil and record their own
	// failures as outcomes.
	var g errgroup.Group

	for _, ev := range o.evaluators {
		g.Go(func() error {
			outcomes := o.runOne(ctx, ev, response, req)
			mu.Lock()
			for _, outcome := range outcomes {
				merged[outcome.MetricName] = outcome
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return merged
}

// runOne executes a single evaluator under its own timeout, converting any
// error, deadline, or panic into failed outcomes for its declared metrics.
func (o *Orchestrator) runOne(
	ctx context.Context,
	ev ports.Evaluator,
	response string,
	req domain.NormalizedRequest,
) (outcomes []domain.EvaluationOutcome) {
	ectx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("evaluator panicked",
				zap.String("evaluator", ev.Name()),
				zap.Any("panic", r),
			)
			outcomes = failAll(ev, domain.StatusFailed, fmt.Sprintf("evaluator panicked: %v", r))
		}
		o.observe(ev, outcomes, time.Since(start))
	}()

	result, err := ev.Evaluate(ectx, response, req)
	if err != nil {
		status := domain.StatusFailed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ectx.Err(), context.DeadlineExceeded) {
			status = domain.StatusTimedOut
		}
		o.logger.Warn("evaluator failed",
			zap.String("evaluator", ev.Name()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return failAll(ev, status, err.Error())
	}

	return fillMissing(ev, result)
}

// fillMissing guarantees an outcome for every declared metric even when an
// evaluator under-reports, so the report's status map stays complete.
func fillMissing(ev ports.Evaluator, outcomes []domain.EvaluationOutcome) []domain.EvaluationOutcome {
	reported := make(map[string]bool, len(outcomes))
	for _, outcome := range outcomes {
		reported[outcome.MetricName] = true
	}
	for _, metric := range ev.Metrics() {
		if !reported[metric] {
			outcomes = append(outcomes, domain.FailedOutcome(metric, domain.StatusFailed,
				fmt.Sprintf("evaluator %s reported no outcome for %s", ev.Name(), metric)))
		}
	}
	return outcomes
}

func failAll(ev ports.Evaluator, status domain.OutcomeStatus, reason string) []domain.EvaluationOutcome {
	metrics := ev.Metrics()
	outcomes := make([]domain.EvaluationOutcome, 0, len(metrics))
	for _, metric := range metrics {
		outcomes = append(outcomes, domain.FailedOutcome(metric, status, reason))
	}
	return outcomes
}

func (o *Orchestrator) observe(ev ports.Evaluator, outcomes []domain.EvaluationOutcome, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}

	status := "ok"
	for _, outcome := range outcomes {
		if outcome.Status != domain.StatusOK {
			status = string(outcome.Status)
			break
		}
	}

	labels := map[string]string{"evaluator": ev.Name(), "status": status}
	o.metrics.RecordLatency("evaluator_run", elapsed, labels)
	o.metrics.RecordCounter("evaluator_runs_total", 1, labels)
}
