package initializers

import (
	"context"
	"testing"
	"time"

	"github.com/Kariqs/franchise-api/store"
	"github.com/Kariqs/franchise-api/store/memstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, 72*time.Hour, cfg.CartTTL)
	assert.Equal(t, "franchise.events", cfg.KafkaTopic)
	assert.True(t, cfg.FreeDeliveryThreshold.Equal(decimal.NewFromInt(2000)))
	assert.True(t, cfg.FlatDeliveryFee.Equal(decimal.NewFromInt(100)))
	assert.True(t, cfg.LoyaltyPointsPerUnit.Equal(decimal.RequireFromString("0.01")))
	assert.False(t, cfg.OrderRequiresApproval)
	assert.Equal(t, 30*time.Minute, cfg.PaymentExpiry)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.OnlinePaymentsEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "host=db user=app")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("ORDER_REQUIRES_APPROVAL", "true")
	t.Setenv("PAYMENT_EXPIRY", "45m")
	t.Setenv("FLAT_DELIVERY_FEE", "150.50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.OrderRequiresApproval)
	assert.Equal(t, 45*time.Minute, cfg.PaymentExpiry)
	assert.True(t, cfg.FlatDeliveryFee.Equal(decimal.RequireFromString("150.5")))
}

func TestLoadConfig_Malformed(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":    {"PAYMENT_EXPIRY", "soon"},
		"negative expiry": {"PAYMENT_EXPIRY", "-5m"},
		"bad decimal":     {"FLAT_DELIVERY_FEE", "a lot"},
		"bad bool":        {"ORDER_REQUIRES_APPROVAL", "maybe"},
		"unknown driver":  {"DB_DRIVER", "oracle"},
		"negative fee":    {"FLAT_DELIVERY_FEE", "-1"},
		"sql without dsn": {"DB_DRIVER", "mysql"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "secret")
			t.Setenv(kv[0], kv[1])
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestInitLogger(t *testing.T) {
	logger, err := InitLogger("debug", "debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = InitLogger("loud", "release")
	assert.Error(t, err)
}

func TestSeedCatalog(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()

	require.NoError(t, SeedCatalog(ctx, st, zap.NewNop()))
	items, _, err := st.ListItems(ctx, store.CatalogFilter{})
	require.NoError(t, err)
	assert.Empty(t, items, "seeding is opt-in")

	t.Setenv("SEED_CATALOG", "1")
	require.NoError(t, SeedCatalog(ctx, st, zap.NewNop()))
	require.NoError(t, SeedCatalog(ctx, st, zap.NewNop()))
	items, _, err = st.ListItems(ctx, store.CatalogFilter{})
	require.NoError(t, err)
	assert.Len(t, items, len(sampleCatalog()))
}

func TestConnectToDB_Memory(t *testing.T) {
	st, err := ConnectToDB(Config{DBDriver: "memory"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, st)
}

func TestConnectRedis_DisabledWithoutAddr(t *testing.T) {
	client, err := ConnectRedis(context.Background(), Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
}
