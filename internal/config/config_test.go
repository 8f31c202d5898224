package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/paystack-checkout/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PAYSTACK_SECRET_KEY":      "",
		"PAYMENT_DEFAULT_CURRENCY": "",
		"PAYMENT_CURRENCIES":       "",
		"PROVIDER_TIMEOUT":         "",
		"PORT":                     "",
	})
	require.NoError(t, err)
	require.Equal(t, "USD", cfg.DefaultCurrency)
	require.Equal(t, []string{"NGN", "USD", "GHS", "ZAR", "KES"}, cfg.Currencies)
	require.Equal(t, 10*time.Second, cfg.ProviderTimeout)
	require.Equal(t, ":3000", cfg.HTTPAddr())
	require.False(t, cfg.PaystackConfigured())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PAYSTACK_SECRET_KEY":          "sk_test_real",
		"PAYMENT_DEFAULT_CURRENCY":     "ngn",
		"PAYMENT_CURRENCIES":           "ngn, ghs",
		"PROVIDER_TIMEOUT":             "3s",
		"PAYMENT_CALLBACK_FROM_ORIGIN": "yes",
		"CORS_ALLOWED_ORIGINS":         "https://shop.example, https://admin.example",
		"PORT":                         ":9090",
	})
	require.NoError(t, err)
	require.True(t, cfg.PaystackConfigured())
	require.Equal(t, "NGN", cfg.DefaultCurrency)
	require.Equal(t, []string{"NGN", "GHS"}, cfg.Currencies)
	require.Equal(t, 3*time.Second, cfg.ProviderTimeout)
	require.True(t, cfg.CallbackFromOrigin)
	require.Len(t, cfg.CORSAllowedOrigins, 2)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRejectsUnlistedDefaultCurrency(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"PAYMENT_DEFAULT_CURRENCY": "EUR",
		"PAYMENT_CURRENCIES":       "NGN,USD",
	})
	require.Error(t, err)
}

func TestSecretUsable(t *testing.T) {
	require.False(t, config.SecretUsable(""))
	require.False(t, config.SecretUsable("   "))
	require.False(t, config.SecretUsable(config.PlaceholderSecretKey))
	require.True(t, config.SecretUsable("sk_live_abc"))
}
