package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paystack-checkout/internal/app"
	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/health"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/ratelimit"
	"github.com/noah-isme/paystack-checkout/internal/resilience"
)

const secret = "sk_test_e2e_secret"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type fulfillerSpy struct {
	mu        sync.Mutex
	succeeded []payment.Event
	failed    []payment.Event
}

func (f *fulfillerSpy) ChargeSucceeded(_ context.Context, evt payment.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.succeeded = append(f.succeeded, evt)
	return nil
}

func (f *fulfillerSpy) ChargeFailed(_ context.Context, evt payment.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, evt)
	return nil
}

type paystackStub struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
}

func (s *paystackStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/transaction/initialize":
		_, _ = w.Write([]byte(`{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ORDER_1"}}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
		_, _ = w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"id":42,"status":"pending","reference":"ORDER_2","amount":5000,"currency":"NGN"}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":false,"message":"not found"}`))
	}
}

type fixture struct {
	handler   http.Handler
	stub      *paystackStub
	fulfiller *fulfillerSpy
	cfg       *config.Config
}

func newFixture(t *testing.T, mutate func(*config.Config, *app.Dependencies)) fixture {
	t.Helper()
	stub := &paystackStub{}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		AppEnv:            "test",
		PaystackSecretKey: secret,
		PaystackBaseURL:   srv.URL,
		ProviderTimeout:   2 * time.Second,
		DefaultCurrency:   "USD",
		Currencies:        []string{"NGN", "USD", "GHS", "ZAR", "KES"},
		BodyLimitBytes:    1 << 20,
		SecurityHeaders:   true,
	}
	fulfiller := &fulfillerSpy{}
	deps := app.Dependencies{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Fulfiller: fulfiller,
		Health:    health.Handler{},
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}
	if deps.Provider == nil {
		doer := resilience.HTTPClient{Client: srv.Client(), Timeout: cfg.ProviderTimeout}
		deps.Provider = payment.NewPaystack(cfg.PaystackSecretKey, cfg.PaystackBaseURL, doer, zerolog.Nop())
	}
	return fixture{handler: app.NewRouter(deps), stub: stub, fulfiller: fulfiller, cfg: cfg}
}

func (f fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func TestInitializeOrderEndToEnd(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/initialize-payment",
		strings.NewReader(`{"email":"a@b.com","amount":5000,"reference":"ORDER_1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := f.do(req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	env := decode(t, rr)
	require.True(t, env.Status)
	require.JSONEq(t, `{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"ORDER_1"}`, string(env.Data))

	require.Len(t, f.stub.requests, 1)
	require.Equal(t, "Bearer "+secret, f.stub.requests[0].Header.Get("Authorization"))
	var sent map[string]any
	require.NoError(t, json.Unmarshal(f.stub.bodies[0], &sent))
	require.Equal(t, "a@b.com", sent["email"])
	require.EqualValues(t, 5000, sent["amount"])
	require.Equal(t, "USD", sent["currency"])
	require.Equal(t, "ORDER_1", sent["reference"])
}

func TestVerifyPendingIsNotAnError(t *testing.T) {
	f := newFixture(t, nil)

	for _, target := range []string{"/api/verify-payment?reference=ORDER_2", "/api/verify-payment/ORDER_2"} {
		rr := f.do(httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rr.Code, target)
		env := decode(t, rr)
		require.True(t, env.Status)
		var tx map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &tx))
		require.Equal(t, "pending", tx["status"])
	}
	require.Len(t, f.stub.requests, 2)
	require.Equal(t, "/transaction/verify/ORDER_2", f.stub.requests[1].URL.Path)
}

func TestWebhookDispatchesOnceEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	body := []byte(`{"event":"charge.success","data":{"reference":"ORDER_1"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set(payment.SignatureHeader, payment.Sign(secret, body))
	rr := f.do(req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"received":true}`, rr.Body.String())
	require.Len(t, f.fulfiller.succeeded, 1)
	require.Empty(t, f.fulfiller.failed)
	require.Equal(t, "ORDER_1", f.fulfiller.succeeded[0].Reference())
}

func TestWebhookRejectsForgedSignature(t *testing.T) {
	f := newFixture(t, nil)
	body := []byte(`{"event":"charge.success","data":{"reference":"ORDER_1"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(body))
	req.Header.Set(payment.SignatureHeader, payment.Sign("sk_test_other", body))
	rr := f.do(req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Invalid signature", rr.Body.String())
	require.Empty(t, f.fulfiller.succeeded)
}

func TestUnknownRoutesAndMethodsUseEnvelope(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/initialize-payment", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	require.False(t, decode(t, rr).Status)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.False(t, decode(t, rr).Status)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	_, err := time.Parse(time.RFC3339Nano, body["timestamp"])
	require.NoError(t, err)
	require.NotEmpty(t, rr.Header().Get("X-Content-Type-Options"))
}

func TestMissingSecretReportsConfigurationError(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config, _ *app.Dependencies) {
		cfg.PaystackSecretKey = config.PlaceholderSecretKey
	})

	req := httptest.NewRequest(http.MethodPost, "/api/initialize-payment",
		strings.NewReader(`{"email":"a@b.com","amount":5000,"reference":"ORDER_1"}`))
	rr := f.do(req)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, decode(t, rr).Error, "PAYSTACK_SECRET_KEY")
	require.Empty(t, f.stub.requests)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/initialize-payment", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := f.do(req)

	require.Less(t, rr.Code, 300)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestInitializeIsRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := ratelimit.NewStore(rdb, "test:rl")
	require.NoError(t, err)
	lim, err := ratelimit.New("2-M", store)
	require.NoError(t, err)

	f := newFixture(t, func(_ *config.Config, d *app.Dependencies) {
		d.Limiter = lim
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/initialize-payment",
			strings.NewReader(`{"email":"a@b.com","amount":5000,"reference":"ORDER_1"}`))
		codes = append(codes, f.do(req).Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	require.Len(t, f.stub.requests, 2)
}

func TestStaticFilesServedWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "success.html"), []byte("<h1>paid</h1>"), 0o600))

	f := newFixture(t, func(cfg *config.Config, _ *app.Dependencies) {
		cfg.StaticDir = dir
	})

	rr := f.do(httptest.NewRequest(http.MethodGet, "/success.html", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "paid")

	rr = f.do(httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.False(t, decode(t, rr).Status)

	rr = f.do(httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.False(t, decode(t, rr).Status)
}
