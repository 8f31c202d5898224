package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/resilience"
)

var _ asynq.Handler = Processor{}

// Processor redelivers queued webhook events through the payment Router.
type Processor struct {
	Router payment.Router
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler. Undecodable payloads and events
// without a route are not retried.
func (p Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var evt payment.Event
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		QueueProcessedTotal.WithLabelValues(t.Type(), "invalid").Inc()
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	err := p.Router.Dispatch(ctx, evt)
	switch {
	case err == nil:
		QueueProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
		p.Logger.Info().Str("event", evt.Event).Str("reference", evt.Reference()).Msg("webhook_redelivered")
		return nil
	case errors.Is(err, payment.ErrUnhandledEvent):
		QueueProcessedTotal.WithLabelValues(t.Type(), "skipped").Inc()
		return fmt.Errorf("%s: %w", evt.Event, asynq.SkipRetry)
	default:
		QueueProcessedTotal.WithLabelValues(t.Type(), "retry").Inc()
		return err
	}
}

// NewServeMux routes webhook dispatch tasks to p.
func NewServeMux(p Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeWebhookDispatch, p)
	return mux
}

// RetryDelay returns an asynq retry schedule of base * 2^n with jitter.
func RetryDelay(base time.Duration, jitter float64) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return resilience.Backoff(base, n+1, jitter)
	}
}

// ServerConfig tunes the worker server.
type ServerConfig struct {
	Queue       string
	Concurrency int
	RetryBase   time.Duration
	ShutdownFor time.Duration
}

// NewServer builds the asynq server that consumes the dispatch queue.
func NewServer(opt asynq.RedisConnOpt, cfg ServerConfig, logger zerolog.Logger) *asynq.Server {
	queueName := cfg.Queue
	if queueName == "" {
		queueName = DefaultQueue
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	base := cfg.RetryBase
	if base <= 0 {
		base = 5 * time.Second
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency:     concurrency,
		Queues:          map[string]int{queueName: 1},
		RetryDelayFunc:  RetryDelay(base, 0.2),
		ShutdownTimeout: cfg.ShutdownFor,
		Logger:          NewLogger(logger),
		ErrorHandler:    ErrorHandler(logger),
	})
}

// ErrorHandler logs failed attempts and counts tasks that ran out of retries.
func ErrorHandler(logger zerolog.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		taskID, _ := asynq.GetTaskID(ctx)
		evt := logger.Warn()
		if retried >= maxRetry || errors.Is(err, asynq.SkipRetry) {
			QueueDeadTotal.WithLabelValues(t.Type()).Inc()
			evt = logger.Error()
		}
		evt.Err(err).Str("task_id", taskID).Str("type", t.Type()).Int("retried", retried).Int("max_retry", maxRetry).Msg("task_failed")
	})
}
