package app

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"

	"github.com/noah-isme/paystack-checkout/internal/common"
	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/health"
	"github.com/noah-isme/paystack-checkout/internal/obs"
	"github.com/noah-isme/paystack-checkout/internal/payment"
	"github.com/noah-isme/paystack-checkout/internal/ratelimit"
	"github.com/noah-isme/paystack-checkout/internal/security"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Provider  payment.Provider
	Fulfiller payment.Fulfiller
	Redeliver payment.Redeliverer
	Health    health.Handler

	// Limiter guards the initialize endpoint. Nil disables rate limiting.
	Limiter *limiter.Limiter
	// HTTPMetrics enables request metrics and the /metrics endpoint.
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
}

// NewRouter assembles the chi router for the checkout API.
func NewRouter(d Dependencies) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(obs.Recoverer{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(corsOptions(cfg)))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.NotFound(common.NotFound)
	r.MethodNotAllowed(common.MethodNotAllowed)

	payments := payment.NewHandler(cfg, d.Provider, d.Logger)
	webhook := payment.Webhook{
		Secret:    cfg.PaystackSecretKey,
		Router:    payment.Router{Fulfiller: d.Fulfiller},
		Redeliver: d.Redeliver,
		Logger:    d.Logger.With().Str("component", "webhook").Logger(),
	}

	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)
	if d.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", d.Health.API)

		initialize := api
		if d.Limiter != nil {
			initialize = api.With(ratelimit.Handler{
				Limiter: d.Limiter,
				OnError: func(err error) {
					d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
				},
			}.Middleware)
		}
		initialize.Post("/initialize-payment", payments.Initialize)

		api.Get("/verify-payment", payments.Verify)
		api.Get("/verify-payment/{reference}", payments.VerifyByPath)
		api.Post("/webhook", webhook.Handle)
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", staticFiles(cfg.StaticDir))
	}

	return r
}

// staticFiles serves dir and answers misses with the JSON 404 envelope.
func staticFiles(dir string) http.Handler {
	root := http.Dir(dir)
	files := http.FileServer(root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(path.Clean("/" + r.URL.Path))
		if err != nil {
			common.NotFound(w, r)
			return
		}
		_ = f.Close()
		files.ServeHTTP(w, r)
	})
}

func corsOptions(cfg *config.Config) cors.Options {
	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", payment.SignatureHeader},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}
}
