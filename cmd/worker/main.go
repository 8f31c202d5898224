package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/noah-isme/paystack-checkout/internal/app"
	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/obs"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the dispatch worker")
	}
	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "paystack-checkout-worker",
			Endpoint:      cfg.OTLPEndpoint,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	opt, err := app.TaskRedisOpt(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure dispatch queue")
	}

	fulfiller, err := app.NewFulfiller(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure fulfillment")
	}

	srv := queue.NewServer(opt, queue.ServerConfig{
		Queue:       cfg.DispatchQueue,
		Concurrency: cfg.WorkerConcurrency,
		RetryBase:   cfg.DispatchRetryBase,
		ShutdownFor: cfg.ShutdownTimeout,
	}, logger)
	mux := queue.NewServeMux(queue.Processor{
		Router: payment.Router{Fulfiller: fulfiller},
		Logger: logger,
	})

	logger.Info().Str("queue", cfg.DispatchQueue).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	logger.Info().Msg("worker draining")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
