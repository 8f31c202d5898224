package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PaymentInitializeTotal counts initiation proxy outcomes.
	PaymentInitializeTotal *prometheus.CounterVec
	// PaymentVerifyTotal counts verification proxy outcomes by transaction status.
	PaymentVerifyTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound webhook outcomes by event tag.
	PaymentWebhookTotal *prometheus.CounterVec
	// ProviderRequestDuration records provider round-trip latency in milliseconds.
	ProviderRequestDuration *prometheus.HistogramVec
	// FulfillmentDeliveriesTotal counts hand-offs to the downstream fulfillment target.
	FulfillmentDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PaymentInitializeTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_initialize_total",
			Help:      "Count of payment initialization outcomes.",
		}, []string{"result"}))
		PaymentVerifyTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_verify_total",
			Help:      "Count of payment verification outcomes.",
		}, []string{"result", "tx_status"}))
		PaymentWebhookTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"event", "result"}))
		ProviderRequestDuration = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_ms",
			Help:      "Latency of payment provider calls in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation", "outcome"}))
		FulfillmentDeliveriesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillment_deliveries_total",
			Help:      "Count of fulfillment hand-off outcomes.",
		}, []string{"event", "result"}))
	})
}

// CountInitialize increments the initialization counter when registered.
func CountInitialize(result string) {
	if PaymentInitializeTotal != nil {
		PaymentInitializeTotal.WithLabelValues(result).Inc()
	}
}

// CountVerify increments the verification counter when registered.
func CountVerify(result, txStatus string) {
	if PaymentVerifyTotal != nil {
		PaymentVerifyTotal.WithLabelValues(result, txStatus).Inc()
	}
}

// CountWebhook increments the webhook counter when registered.
func CountWebhook(event, result string) {
	if PaymentWebhookTotal != nil {
		PaymentWebhookTotal.WithLabelValues(event, result).Inc()
	}
}

// CountFulfillment increments the fulfillment counter when registered.
func CountFulfillment(event, result string) {
	if FulfillmentDeliveriesTotal != nil {
		FulfillmentDeliveriesTotal.WithLabelValues(event, result).Inc()
	}
}

// ObserveProvider records a provider call latency when registered.
func ObserveProvider(operation, outcome string, ms float64) {
	if ProviderRequestDuration != nil {
		ProviderRequestDuration.WithLabelValues(operation, outcome).Observe(ms)
	}
}
