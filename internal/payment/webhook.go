package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/paystack-checkout/internal/common"
	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/obs"
)

// Webhook authenticates provider callbacks and hands them to the Router.
// Once a signature checks out the provider always gets 200, since any other
// status makes it redeliver; failed hand-offs go to Redeliver when set.
type Webhook struct {
	Secret    string
	Router    Router
	Redeliver Redeliverer
	Logger    zerolog.Logger
}

// Handle serves POST /api/webhook.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.MethodNotAllowed(w, r)
		return
	}
	logger := loggerFrom(r.Context(), &h.Logger)
	if !config.SecretUsable(h.Secret) {
		logger.Error().Msg("paystack_secret_missing")
		obs.CountWebhook("unknown", "config_error")
		common.Fail(w, http.StatusInternalServerError, msgConfigError)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.Fail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		common.Fail(w, http.StatusBadRequest, "Unable to read request body")
		return
	}

	if !ValidSignature(h.Secret, body, r.Header.Get(SignatureHeader)) {
		logger.Warn().Int("body_bytes", len(body)).Msg("webhook_signature_invalid")
		obs.CountWebhook("unknown", "invalid_signature")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "Invalid signature")
		return
	}

	evt, err := ParseEvent(body)
	if err != nil {
		logger.Warn().Err(err).Msg("webhook_malformed")
		obs.CountWebhook("unknown", "malformed")
		acknowledge(w)
		return
	}

	entry := logger.With().Str("event", evt.Event).Str("reference", evt.Reference()).Logger()
	if !h.Router.Handles(evt.Event) {
		entry.Info().Msg("webhook_unhandled")
		obs.CountWebhook(evt.Event, "unhandled")
		acknowledge(w)
		return
	}

	if err := h.Router.Dispatch(r.Context(), evt); err != nil {
		entry.Error().Err(err).Msg("webhook_dispatch_failed")
		obs.CountWebhook(evt.Event, "dispatch_failed")
		if h.Redeliver != nil {
			if qerr := h.Redeliver.Enqueue(r.Context(), evt); qerr != nil {
				entry.Error().Err(qerr).Msg("webhook_redelivery_enqueue_failed")
			} else {
				entry.Info().Msg("webhook_redelivery_enqueued")
			}
		}
		acknowledge(w)
		return
	}

	entry.Info().Msg("webhook_dispatched")
	obs.CountWebhook(evt.Event, "dispatched")
	acknowledge(w)
}

func acknowledge(w http.ResponseWriter) {
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
