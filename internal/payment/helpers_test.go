package payment_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/resilience"
)

const testSecret = "sk_test_0123456789abcdef"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func testConfig() *config.Config {
	return &config.Config{
		PaystackSecretKey: testSecret,
		DefaultCurrency:   "USD",
		Currencies:        []string{"NGN", "USD", "GHS", "ZAR", "KES"},
		ProviderTimeout:   2 * time.Second,
	}
}

type fakeProvider struct {
	mu          sync.Mutex
	initCalls   int
	verifyCalls int
	lastOrder   payment.OrderRequest
	lastRef     string
	initRes     payment.InitiationResult
	initErr     error
	verifyRes   payment.VerificationResult
	verifyErr   error
}

func (f *fakeProvider) Initialize(_ context.Context, req payment.OrderRequest) (payment.InitiationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	f.lastOrder = req
	return f.initRes, f.initErr
}

func (f *fakeProvider) Verify(_ context.Context, reference string) (payment.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	f.lastRef = reference
	return f.verifyRes, f.verifyErr
}

// newPaystack returns a client pointed at an httptest server running handler.
func newPaystack(t *testing.T, handler http.HandlerFunc) *payment.Paystack {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	doer := resilience.HTTPClient{Client: srv.Client(), Timeout: 2 * time.Second}
	return payment.NewPaystack(testSecret, srv.URL, doer, zerolog.Nop())
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
