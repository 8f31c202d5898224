package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/paystack-checkout/internal/common"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var draining atomic.Bool

// SetReady toggles readiness. The server flips it to false before draining.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// Pinger is a dependency that can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger probes a go-redis client.
type RedisPinger struct {
	Client *redis.Client
}

// Ping issues PING against Redis.
func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Redis        Pinger
	RedisTimeout time.Duration
	Now          func() time.Time
}

// API serves GET /api/health.
func (h Handler) API(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(timestampLayout),
	})
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. Redis is only probed when configured.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if draining.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	status := map[string]string{"status": "ok", "redis": "disabled"}
	code := http.StatusOK
	if h.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.redisTimeout())
		defer cancel()
		if err := h.Redis.Ping(ctx); err != nil {
			status["status"] = "degraded"
			status["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "ok"
		}
	}
	common.JSON(w, code, status)
}

func (h Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
