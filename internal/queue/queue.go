package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paystack-checkout/internal/fulfillment"
	"github.com/noah-isme/paystack-checkout/internal/payment"
)

// TypeWebhookDispatch is the asynq task type carrying a webhook event to redeliver.
const TypeWebhookDispatch = "webhook:dispatch"

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "webhooks"

var _ payment.Redeliverer = Enqueuer{}

// NewDispatchTask wraps evt in an asynq task.
func NewDispatchTask(evt payment.Event, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("queue: encode event: %w", err)
	}
	return asynq.NewTask(TypeWebhookDispatch, payload, opts...), nil
}

// TaskClient is the subset of *asynq.Client used by Enqueuer.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskInspector is the subset of *asynq.Inspector used to resolve task id
// conflicts.
type TaskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	DeleteTask(queue, id string) error
}

// Enqueuer schedules failed webhook hand-offs for the worker. It satisfies
// payment.Redeliverer.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
	Logger   zerolog.Logger
	// Inspector lets a new failure of an event replace its archived task.
	// Without it a conflicting archived task is only logged.
	Inspector TaskInspector
}

// Enqueue publishes evt. The task id is derived from the event, so a second
// enqueue of the same notification while the first is pending is a no-op. An
// archived task with the same id is replaced when an Inspector is set.
func (e Enqueuer) Enqueue(ctx context.Context, evt payment.Event) error {
	if e.Client == nil {
		return errors.New("queue: task client not configured")
	}
	queueName := strings.TrimSpace(e.Queue)
	if queueName == "" {
		queueName = DefaultQueue
	}
	taskID := fulfillment.DeliveryID(evt)
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.TaskID(taskID),
	}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	task, err := NewDispatchTask(evt, opts...)
	if err != nil {
		return err
	}

	info, err := e.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		replaced, rerr := e.replaceArchived(queueName, taskID)
		switch {
		case rerr != nil:
			err = rerr
		case replaced:
			info, err = e.Client.EnqueueContext(ctx, task)
		}
	}
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		QueueEnqueuedTotal.WithLabelValues(TypeWebhookDispatch, "duplicate").Inc()
		return nil
	case err != nil:
		QueueEnqueuedTotal.WithLabelValues(TypeWebhookDispatch, "error").Inc()
		return fmt.Errorf("queue: enqueue %s: %w", evt.Event, err)
	}
	QueueEnqueuedTotal.WithLabelValues(TypeWebhookDispatch, "enqueued").Inc()
	e.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Str("event", evt.Event).Msg("task_enqueued")
	return nil
}

// replaceArchived deletes the task holding id when it is archived, so the
// event can be queued again. It reports whether the task was removed.
func (e Enqueuer) replaceArchived(queueName, id string) (bool, error) {
	if e.Inspector == nil {
		e.Logger.Warn().Str("task_id", id).Str("queue", queueName).Msg("task_id_conflict")
		return false, nil
	}
	info, err := e.Inspector.GetTaskInfo(queueName, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			// Gone between the enqueue and the lookup; retry the enqueue.
			return true, nil
		}
		return false, fmt.Errorf("queue: inspect task %s: %w", id, err)
	}
	if info.State != asynq.TaskStateArchived {
		e.Logger.Debug().Str("task_id", id).Str("state", info.State.String()).Msg("task_already_queued")
		return false, nil
	}
	if err := e.Inspector.DeleteTask(queueName, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return false, fmt.Errorf("queue: delete archived task %s: %w", id, err)
	}
	e.Logger.Warn().Str("task_id", id).Str("queue", queueName).Msg("archived_task_replaced")
	return true, nil
}
