package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-appsession/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDPendingAuthSweep = "appsession.pending_auth.sweep"

// PendingAuthSweeper abandons expired authorization exchanges.
// *core.PendingAuthStore satisfies it.
type PendingAuthSweeper interface {
	SweepExpired(now time.Time) int
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
// An empty disposition defaults to retry; once the attempt count reaches
// MaxAttempts a retry disposition becomes terminal. Delay only applies to
// retries.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts && out.Disposition == queue.NackDispositionRetry {
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		} else {
			out.Disposition = queue.NackDispositionFailed
		}
	}
	if out.Disposition != queue.NackDispositionRetry {
		out.Delay = 0
	}
	return out
}

// SweepEnqueuer publishes sweep requests onto a go-job queue. The
// idempotency key buckets requests per second so a crashed scheduler
// re-enqueueing does not fan out duplicate sweeps.
type SweepEnqueuer struct {
	enqueuer queue.Enqueuer
	now      func() time.Time
}

func NewSweepEnqueuer(enqueuer queue.Enqueuer) *SweepEnqueuer {
	return &SweepEnqueuer{enqueuer: enqueuer, now: time.Now}
}

func (e *SweepEnqueuer) EnqueueSweep(ctx context.Context) (queue.EnqueueReceipt, error) {
	if e == nil || e.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: sweep enqueuer is not configured")
	}
	requestedAt := e.now().UTC()
	receipt, err := e.enqueuer.Enqueue(ctx, &job.ExecutionMessage{
		JobID:          JobIDPendingAuthSweep,
		IdempotencyKey: fmt.Sprintf("%s:%d", JobIDPendingAuthSweep, requestedAt.Unix()),
		Parameters: map[string]any{
			"requested_at": requestedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return queue.EnqueueReceipt{}, err
	}
	return receipt, nil
}

// SweepWorker consumes sweep messages and abandons expired exchanges.
type SweepWorker struct {
	dequeuer queue.Dequeuer
	sweeper  PendingAuthSweeper
	policy   RetryPolicy
	logger   glog.Logger
	now      func() time.Time
}

type SweepWorkerOption func(*SweepWorker)

func WithSweepLogger(logger glog.Logger) SweepWorkerOption {
	return func(w *SweepWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithSweepClock(now func() time.Time) SweepWorkerOption {
	return func(w *SweepWorker) {
		if now != nil {
			w.now = now
		}
	}
}

func NewSweepWorker(
	dequeuer queue.Dequeuer,
	sweeper PendingAuthSweeper,
	policy RetryPolicy,
	options ...SweepWorkerOption,
) *SweepWorker {
	w := &SweepWorker{
		dequeuer: dequeuer,
		sweeper:  sweeper,
		policy:   policy,
		logger:   glog.Nop(),
		now:      time.Now,
	}
	for _, option := range options {
		if option != nil {
			option(w)
		}
	}
	return w
}

// RunOnce handles a single delivery and reports how many exchanges were
// abandoned. Messages for other job ids are nacked without requeue.
func (w *SweepWorker) RunOnce(ctx context.Context) (int, error) {
	if w == nil || w.dequeuer == nil || w.sweeper == nil {
		return 0, fmt.Errorf("gojob: sweep worker is not configured")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return 0, err
	}
	msg := delivery.Message()
	if msg == nil || msg.JobID != JobIDPendingAuthSweep {
		nack := w.policy.NormalizeAttempt(queue.NackOptions{
			Disposition: queue.NackDispositionDeadLetter,
			Reason:      "unhandled job id",
		}, w.policy.MaxAttempts)
		if nackErr := delivery.Nack(ctx, nack); nackErr != nil {
			return 0, nackErr
		}
		return 0, nil
	}

	swept := w.sweeper.SweepExpired(w.now().UTC())
	if err := delivery.Ack(ctx); err != nil {
		return swept, err
	}
	if swept > 0 {
		w.logger.Info("abandoned expired authorization exchanges",
			"job_id", msg.JobID,
			"swept", swept,
		)
	}
	return swept, nil
}

// Run consumes deliveries until the context is cancelled.
func (w *SweepWorker) Run(ctx context.Context) error {
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
	}
}

// MetricsHook bridges go-job worker lifecycle events into the session
// metrics recorder.
type MetricsHook struct {
	metrics core.MetricsRecorder
}

func NewMetricsHook(metrics core.MetricsRecorder) *MetricsHook {
	return &MetricsHook{metrics: metrics}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	h.record(ctx, "started", event)
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.record(ctx, "succeeded", event)
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	h.record(ctx, "failed", event)
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	h.record(ctx, "retried", event)
}

func (h *MetricsHook) record(ctx context.Context, phase string, event worker.Event) {
	if h == nil || h.metrics == nil {
		return
	}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	jobID := ""
	if message != nil {
		jobID = message.JobID
	}
	h.metrics.IncCounter(ctx, "appsession.job."+phase+".total", 1, map[string]string{
		"job_id": jobID,
	})
}

var (
	_ worker.Hook        = (*MetricsHook)(nil)
	_ PendingAuthSweeper = (*core.PendingAuthStore)(nil)
)
