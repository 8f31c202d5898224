package fulfillment

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/paystack-checkout/internal/obs"
	"github.com/noah-isme/paystack-checkout/internal/payment"
)

// LogSink records charge events in the log when no downstream endpoint is configured.
type LogSink struct {
	Logger zerolog.Logger
}

// ChargeSucceeded logs a successful charge.
func (s LogSink) ChargeSucceeded(_ context.Context, evt payment.Event) error {
	s.Logger.Info().Str("event", evt.Event).Str("reference", evt.Reference()).Msg("payment_successful")
	obs.CountFulfillment(evt.Event, "logged")
	return nil
}

// ChargeFailed logs a failed charge.
func (s LogSink) ChargeFailed(_ context.Context, evt payment.Event) error {
	s.Logger.Warn().Str("event", evt.Event).Str("reference", evt.Reference()).Msg("payment_failed")
	obs.CountFulfillment(evt.Event, "logged")
	return nil
}
