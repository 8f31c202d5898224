package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/fulfillment"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/resilience"
)

// NewRedis connects to url and instruments the client. An empty url returns
// a nil client and no error.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// TaskRedisOpt converts the Redis url into asynq connection options.
func TaskRedisOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse asynq redis url: %w", err)
	}
	return opt, nil
}

// NewProviderClient builds the resilient HTTP client used for Paystack calls:
// one attempt, bounded by ProviderTimeout, behind a circuit breaker.
func NewProviderClient(cfg *config.Config, logger zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("paystack").
		WithLogger(logger)
	return resilience.HTTPClient{
		Client:  &http.Client{Transport: resilience.NewTransport(nil)},
		Breaker: breaker,
		Timeout: cfg.ProviderTimeout,
	}
}

// NewProvider returns the Paystack provider configured from cfg.
func NewProvider(cfg *config.Config, logger zerolog.Logger) *payment.Paystack {
	return payment.NewPaystack(cfg.PaystackSecretKey, cfg.PaystackBaseURL, NewProviderClient(cfg, logger), logger.With().Str("component", "paystack").Logger())
}

// NewFulfiller picks the downstream hand-off: an HTTP forwarder when a
// fulfillment URL is configured, otherwise a log sink.
func NewFulfiller(cfg *config.Config, logger zerolog.Logger) (payment.Fulfiller, error) {
	scoped := logger.With().Str("component", "fulfillment").Logger()
	if cfg.FulfillmentURL == "" {
		return fulfillment.LogSink{Logger: scoped}, nil
	}
	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("fulfillment").
		WithLogger(scoped)
	doer := resilience.HTTPClient{
		Client:  &http.Client{Transport: resilience.NewTransport(nil)},
		Breaker: breaker,
		Timeout: cfg.FulfillmentTimeout,
	}
	return fulfillment.NewForwarder(cfg.FulfillmentURL, cfg.FulfillmentSigningSecret, doer, scoped)
}
