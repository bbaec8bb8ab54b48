package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-masala/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost/masala",
		"REDIS_URL":               "redis://localhost:6379",
		"FREE_DELIVERY_THRESHOLD": "",
		"DELIVERY_FEE":            "",
		"CART_TTL":                "",
		"PORT":                    "",
	})
	require.NoError(t, err)
	require.Equal(t, int64(50000), cfg.FreeDeliveryThreshold)
	require.Equal(t, int64(5000), cfg.DeliveryFee)
	require.Equal(t, 168*time.Hour, cfg.CartTTL)
	require.Equal(t, "INR", cfg.CurrencyCode)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadRequiresDatabase(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379",
	})
	require.Error(t, err)
}

func TestLoadRejectsNegativeFee(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"DATABASE_URL": "postgres://localhost/masala",
		"REDIS_URL":    "redis://localhost:6379",
		"DELIVERY_FEE": "-1",
	})
	require.Error(t, err)
}
