package payment

import (
	"context"
	"encoding/json"
	"fmt"
)

// OrderRequest is the transaction the checkout client asks us to open with the provider.
type OrderRequest struct {
	Email       string         `json:"email" validate:"required,email"`
	Amount      int64          `json:"amount" validate:"gt=0"`
	Currency    string         `json:"currency,omitempty" validate:"currency"`
	Reference   string         `json:"reference" validate:"required,max=100"`
	Metadata    map[string]any `json:"metadata"`
	CallbackURL string         `json:"callback_url,omitempty" validate:"omitempty,http_url"`
}

// InitiationResult is the allow-listed part of a successful initialize call.
type InitiationResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`

	Message string `json:"-"`
}

// TransactionStatus is the provider's view of a transaction.
type TransactionStatus string

const (
	StatusSuccess    TransactionStatus = "success"
	StatusFailed     TransactionStatus = "failed"
	StatusPending    TransactionStatus = "pending"
	StatusAbandoned  TransactionStatus = "abandoned"
	StatusReversed   TransactionStatus = "reversed"
	StatusOngoing    TransactionStatus = "ongoing"
	StatusProcessing TransactionStatus = "processing"
	StatusQueued     TransactionStatus = "queued"
)

// Known reports whether s is one of the documented provider statuses.
func (s TransactionStatus) Known() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusPending, StatusAbandoned,
		StatusReversed, StatusOngoing, StatusProcessing, StatusQueued:
		return true
	}
	return false
}

// Customer holds the customer fields we read from a transaction.
type Customer struct {
	Email string `json:"email"`
}

// Transaction is the typed projection of a verified transaction. Fields the
// provider omits stay zero.
type Transaction struct {
	ID              int64             `json:"id"`
	Status          TransactionStatus `json:"status"`
	Reference       string            `json:"reference"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	PaidAt          string            `json:"paid_at"`
	Channel         string            `json:"channel"`
	GatewayResponse string            `json:"gateway_response"`
	Customer        Customer          `json:"customer"`
}

// VerificationResult carries the provider transaction both typed and as the
// exact data payload returned to callers.
type VerificationResult struct {
	Message     string
	Transaction Transaction
	Raw         json.RawMessage
}

// Provider is the payment gateway capability used by the HTTP handlers.
type Provider interface {
	Initialize(ctx context.Context, req OrderRequest) (InitiationResult, error)
	Verify(ctx context.Context, reference string) (VerificationResult, error)
}

// ProviderError is a business failure reported by the provider, such as an
// unknown reference or a declined request. Message is passed to callers as-is.
type ProviderError struct {
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider rejected request (%d): %s", e.StatusCode, e.Message)
}
