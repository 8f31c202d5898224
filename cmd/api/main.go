package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/paystack-checkout/internal/app"
	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/health"
	"github.com/noah-isme/paystack-checkout/internal/obs"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/queue"
	"github.com/noah-isme/paystack-checkout/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.HTTPBuckets), nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "paystack-checkout-api",
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if !cfg.PaystackConfigured() {
		logger.Warn().Msg("PAYSTACK_SECRET_KEY is not set; payment endpoints will answer 500 until it is configured")
	}

	redisClient, err := app.NewRedis(ctx, cfg.RedisURL, cfg.MetricsEnabled, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	lim := mustInitLimiter(cfg, redisClient, logger)

	fulfiller, err := app.NewFulfiller(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure fulfillment")
	}

	var redeliver payment.Redeliverer
	if redisClient != nil {
		opt, err := app.TaskRedisOpt(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("configure dispatch queue")
		}
		taskClient := asynq.NewClient(opt)
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close task client")
			}
		}()
		inspector := asynq.NewInspector(opt)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Error().Err(err).Msg("close task inspector")
			}
		}()
		redeliver = queue.Enqueuer{
			Client:    taskClient,
			Queue:     cfg.DispatchQueue,
			MaxRetry:  cfg.DispatchMaxRetry,
			Logger:    logger.With().Str("component", "queue").Logger(),
			Inspector: inspector,
		}
	} else {
		logger.Warn().Msg("REDIS_URL is not set; failed webhook hand-offs are logged only")
	}

	healthHandler := health.Handler{}
	if redisClient != nil {
		healthHandler.Redis = health.RedisPinger{Client: redisClient}
	}

	handler := app.NewRouter(app.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Provider:    app.NewProvider(cfg, logger),
		Fulfiller:   fulfiller,
		Redeliver:   redeliver,
		Health:      healthHandler,
		Limiter:     lim,
		HTTPMetrics: httpMetrics,
		Tracing:     tracingEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)
		logger.Info().Msg("server draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited unexpectedly")
		return
	}
	logger.Info().Msg("server shutdown complete")
}

func mustInitLimiter(cfg *config.Config, rdb *redis.Client, logger zerolog.Logger) *limiter.Limiter {
	if cfg.RateLimitInitialize == "" || cfg.RateLimitInitialize == "off" {
		return nil
	}
	store, err := ratelimit.NewStore(rdb, "checkout:rl")
	if err != nil {
		logger.Fatal().Err(err).Msg("create rate limit store")
	}
	lim, err := ratelimit.New(cfg.RateLimitInitialize, store)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse RATE_LIMIT_INITIALIZE")
	}
	return lim
}
