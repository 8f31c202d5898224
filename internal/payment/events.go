package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// Webhook event tags we act on.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// ErrUnhandledEvent is returned by Router.Dispatch for tags with no handler.
var ErrUnhandledEvent = errors.New("payment: unhandled webhook event")

// Event is an authenticated webhook notification.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Reference returns data.reference, or "" when absent.
func (e Event) Reference() string {
	var d struct {
		Reference string `json:"reference"`
	}
	if len(e.Data) == 0 {
		return ""
	}
	_ = json.Unmarshal(e.Data, &d)
	return d.Reference
}

// ParseEvent decodes a webhook envelope. An envelope without an event tag is rejected.
func ParseEvent(body []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, err
	}
	evt.Event = strings.TrimSpace(evt.Event)
	if evt.Event == "" {
		return Event{}, errors.New("payment: webhook event tag missing")
	}
	return evt, nil
}

// Fulfiller is the downstream collaborator that acts on charge outcomes.
// Implementations must tolerate redelivery of the same event.
type Fulfiller interface {
	ChargeSucceeded(ctx context.Context, evt Event) error
	ChargeFailed(ctx context.Context, evt Event) error
}

// Redeliverer schedules an event whose hand-off failed for a later attempt.
type Redeliverer interface {
	Enqueue(ctx context.Context, evt Event) error
}

// Router maps event tags onto Fulfiller calls.
type Router struct {
	Fulfiller Fulfiller
}

// Handles reports whether tag has a route.
func (rt Router) Handles(tag string) bool {
	return tag == EventChargeSuccess || tag == EventChargeFailed
}

// Dispatch invokes the Fulfiller method for evt exactly once.
func (rt Router) Dispatch(ctx context.Context, evt Event) error {
	if rt.Fulfiller == nil {
		return errors.New("payment: no fulfiller configured")
	}
	switch evt.Event {
	case EventChargeSuccess:
		return rt.Fulfiller.ChargeSucceeded(ctx, evt)
	case EventChargeFailed:
		return rt.Fulfiller.ChargeFailed(ctx, evt)
	default:
		return ErrUnhandledEvent
	}
}
