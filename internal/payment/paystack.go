package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/paystack-checkout/internal/common"
	"github.com/noah-isme/paystack-checkout/internal/obs"
	"github.com/noah-isme/paystack-checkout/internal/resilience"
)

// DefaultBaseURL is the Paystack REST endpoint.
const DefaultBaseURL = "https://api.paystack.co"

// maxResponseBytes caps how much of a provider response we buffer.
const maxResponseBytes = 4 << 20

var tracer = otel.Tracer("github.com/noah-isme/paystack-checkout/internal/payment")

// Doer sends a request under ctx. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Paystack implements Provider against the Paystack transaction API.
type Paystack struct {
	SecretKey string
	BaseURL   string
	HTTP      Doer
	Logger    zerolog.Logger
}

// NewPaystack builds a client. An empty baseURL selects DefaultBaseURL.
func NewPaystack(secretKey, baseURL string, doer Doer, logger zerolog.Logger) *Paystack {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Paystack{SecretKey: secretKey, BaseURL: baseURL, HTTP: doer, Logger: logger}
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a transaction and returns the hosted-page details.
func (p *Paystack) Initialize(ctx context.Context, req OrderRequest) (InitiationResult, error) {
	ctx, span := tracer.Start(ctx, "paystack.initialize")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", req.Reference), attribute.String("payment.currency", req.Currency))

	payload, err := json.Marshal(req)
	if err != nil {
		return InitiationResult{}, common.NewAppError(common.KindInternal, "encode initialize request", err)
	}
	resp, err := p.call(ctx, "initialize", http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "initialize failed")
		return InitiationResult{}, err
	}

	var out InitiationResult
	if err := json.Unmarshal(resp.Data, &out); err != nil || out.AuthorizationURL == "" {
		if err == nil {
			err = errors.New("authorization_url missing")
		}
		span.SetStatus(codes.Error, "malformed response")
		return InitiationResult{}, common.NewAppError(common.KindTransport, "malformed initialize response", err)
	}
	out.Message = resp.Message
	return out, nil
}

// Verify fetches the current state of the transaction identified by reference.
func (p *Paystack) Verify(ctx context.Context, reference string) (VerificationResult, error) {
	ctx, span := tracer.Start(ctx, "paystack.verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference))

	resp, err := p.call(ctx, "verify", http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify failed")
		return VerificationResult{}, err
	}

	result := VerificationResult{Message: resp.Message, Raw: resp.Data}
	if err := json.Unmarshal(resp.Data, &result.Transaction); err != nil {
		// The raw payload is still forwarded; only the typed view is lost.
		p.Logger.Warn().Err(err).Str("reference", reference).Msg("paystack_verify_projection_failed")
	}
	span.SetAttributes(attribute.String("payment.status", string(result.Transaction.Status)))
	return result, nil
}

// call performs one request and classifies the outcome. A response with
// status=false becomes *ProviderError; everything the caller cannot act on
// becomes a KindTransport AppError.
func (p *Paystack) call(ctx context.Context, op, method, path string, body []byte) (apiResponse, error) {
	start := time.Now()
	outcome := "transport_error"
	defer func() {
		obs.ObserveProvider(op, outcome, obs.DurationMillis(time.Since(start)))
	}()

	if p.HTTP == nil {
		return apiResponse{}, common.NewAppError(common.KindConfiguration, "paystack http client not configured", nil)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, reader)
	if err != nil {
		return apiResponse{}, common.NewAppError(common.KindInternal, "build paystack request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := p.HTTP.Do(ctx, req)
	if err != nil {
		if resilience.IsTimeout(err) {
			outcome = "timeout"
		}
		if errors.Is(err, resilience.ErrOpenCircuit) {
			outcome = "circuit_open"
		}
		return apiResponse{}, common.NewAppError(common.KindTransport, "paystack "+op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return apiResponse{}, common.NewAppError(common.KindTransport, "read paystack response", err)
	}
	if res.StatusCode >= http.StatusInternalServerError {
		outcome = "upstream_error"
		return apiResponse{}, common.NewAppError(common.KindTransport, "paystack "+op, &resilience.StatusError{StatusCode: res.StatusCode})
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		outcome = "malformed"
		return apiResponse{}, common.NewAppError(common.KindTransport, fmt.Sprintf("decode paystack %s response (HTTP %d)", op, res.StatusCode), err)
	}
	if !decoded.Status {
		outcome = "rejected"
		msg := strings.TrimSpace(decoded.Message)
		if msg == "" {
			msg = fallbackProviderMessage(op)
		}
		return apiResponse{}, &ProviderError{Message: msg, StatusCode: res.StatusCode}
	}
	if isNullJSON(decoded.Data) {
		outcome = "malformed"
		return apiResponse{}, common.NewAppError(common.KindTransport, "paystack "+op+" response carried no data", nil)
	}

	outcome = "ok"
	return decoded, nil
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func fallbackProviderMessage(op string) string {
	if op == "verify" {
		return "Payment verification failed"
	}
	return "Failed to initialize payment"
}
