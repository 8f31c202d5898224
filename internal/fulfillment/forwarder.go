package fulfillment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/paystack-checkout/internal/common"
	"github.com/noah-isme/paystack-checkout/internal/obs"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/resilience"
)

const userAgent = "paystack-checkout-fulfillment/1.0"

var deliveryNamespace = uuid.MustParse("6f1d3a52-8c4e-4b7a-9d0e-2f5b7c9a1e34")

var (
	_ payment.Fulfiller = (*Forwarder)(nil)
	_ payment.Fulfiller = LogSink{}
)

// Forwarder hands authenticated charge events to a downstream HTTP endpoint.
type Forwarder struct {
	URL    string
	Secret string
	HTTP   payment.Doer
	Logger zerolog.Logger
	now    func() time.Time
}

// NewForwarder validates target and returns a Forwarder posting to it.
func NewForwarder(target, secret string, doer payment.Doer, logger zerolog.Logger) (*Forwarder, error) {
	if err := validateURL(target); err != nil {
		return nil, err
	}
	if doer == nil {
		return nil, errors.New("fulfillment: http client required")
	}
	return &Forwarder{URL: target, Secret: secret, HTTP: doer, Logger: logger, now: time.Now}, nil
}

// ChargeSucceeded forwards a charge.success event.
func (f *Forwarder) ChargeSucceeded(ctx context.Context, evt payment.Event) error {
	return f.deliver(ctx, evt)
}

// ChargeFailed forwards a charge.failed event.
func (f *Forwarder) ChargeFailed(ctx context.Context, evt payment.Event) error {
	return f.deliver(ctx, evt)
}

type delivery struct {
	DeliveryID string          `json:"deliveryId"`
	Event      string          `json:"event"`
	Reference  string          `json:"reference,omitempty"`
	Data       json.RawMessage `json:"data"`
	SentAt     time.Time       `json:"sentAt"`
}

func (f *Forwarder) deliver(ctx context.Context, evt payment.Event) (err error) {
	ctx, span := otel.Tracer("fulfillment.Forwarder").Start(ctx, "Forwarder.deliver")
	defer span.End()

	deliveryID := DeliveryID(evt)
	span.SetAttributes(
		attribute.String("fulfillment.event", evt.Event),
		attribute.String("fulfillment.delivery_id", deliveryID),
	)
	defer func() {
		result := "delivered"
		if err != nil {
			result = "failed"
			span.RecordError(err)
		}
		obs.CountFulfillment(evt.Event, result)
	}()

	now := f.clock()
	data := evt.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	body, err := json.Marshal(delivery{
		DeliveryID: deliveryID,
		Event:      evt.Event,
		Reference:  evt.Reference(),
		Data:       data,
		SentAt:     now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	ts := now.Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Event", evt.Event)
	req.Header.Set("X-Idempotency-Key", deliveryID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	if f.Secret != "" {
		req.Header.Set("X-Signature", ComputeSignature(f.Secret, ts, deliveryID, body))
	}

	resp, err := f.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", evt.Event, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("deliver %s: %w", evt.Event, &resilience.StatusError{StatusCode: resp.StatusCode})
	}
	f.Logger.Info().Str("event", evt.Event).Str("delivery_id", deliveryID).Msg("fulfillment_delivered")
	return nil
}

func (f *Forwarder) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}

// DeliveryID derives a stable identifier from the event so redeliveries of
// the same notification carry the same idempotency key. The data is hashed in
// the compact, HTML-escaped form json.Marshal produces, so an event that went
// through the redelivery queue keeps its id.
func DeliveryID(evt payment.Event) string {
	data := canonicalData(evt.Data)
	name := make([]byte, 0, len(evt.Event)+1+len(data))
	name = append(name, evt.Event...)
	name = append(name, '\n')
	name = append(name, data...)
	return uuid.NewSHA1(deliveryNamespace, name).String()
}

func canonicalData(raw json.RawMessage) []byte {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null")
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return raw
	}
	return out
}

// ComputeSignature returns hex(HMAC-SHA256(secret, "<ts>.<deliveryID>.<body>")).
func ComputeSignature(secret string, ts int64, deliveryID string, body []byte) string {
	msg := make([]byte, 0, len(body)+len(deliveryID)+24)
	msg = strconv.AppendInt(msg, ts, 10)
	msg = append(msg, '.')
	msg = append(msg, deliveryID...)
	msg = append(msg, '.')
	msg = append(msg, body...)
	return common.HMACHex(sha256.New, secret, msg)
}

func validateURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("fulfillment: invalid url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("fulfillment: url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("fulfillment: url must include host")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return errors.New("fulfillment: plain http only allowed for localhost")
		}
	}
	return nil
}
