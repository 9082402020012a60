package initializers

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	CartTTL       time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret   string
	CORSOrigins []string

	FreeDeliveryThreshold decimal.Decimal
	FlatDeliveryFee       decimal.Decimal
	LoyaltyPointsPerUnit  decimal.Decimal
	OrderRequiresApproval bool

	PaymentExpiry        time.Duration
	PaymentSweepInterval time.Duration

	PesapalBaseURL        string
	PesapalConsumerKey    string
	PesapalConsumerSecret string
	PesapalNotificationID string
	PesapalCallbackURL    string
	PesapalCurrency       string

	LogLevel string
}

// LoadConfig reads the service configuration from the environment. Unset
// variables take their defaults; malformed ones are an error.
func LoadConfig() (Config, error) {
	r := envReader{}
	cfg := Config{
		Port:    r.str("PORT", "8080"),
		GinMode: r.str("GIN_MODE", "release"),

		DBDriver: strings.ToLower(r.str("DB_DRIVER", "memory")),
		DBDSN:    r.str("DB_DSN", ""),

		RedisAddr:     r.str("REDIS_ADDR", ""),
		RedisPassword: r.str("REDIS_PASSWORD", ""),
		CartTTL:       r.duration("CART_TTL", 72*time.Hour),

		KafkaBrokers: r.list("KAFKA_BROKERS"),
		KafkaTopic:   r.str("KAFKA_TOPIC", "franchise.events"),

		JWTSecret:   r.str("JWT_SECRET", ""),
		CORSOrigins: r.list("CORS_ORIGINS"),

		FreeDeliveryThreshold: r.decimal("FREE_DELIVERY_THRESHOLD", decimal.NewFromInt(2000)),
		FlatDeliveryFee:       r.decimal("FLAT_DELIVERY_FEE", decimal.NewFromInt(100)),
		LoyaltyPointsPerUnit:  r.decimal("LOYALTY_POINTS_PER_UNIT", decimal.RequireFromString("0.01")),
		OrderRequiresApproval: r.boolean("ORDER_REQUIRES_APPROVAL", false),

		PaymentExpiry:        r.duration("PAYMENT_EXPIRY", 30*time.Minute),
		PaymentSweepInterval: r.duration("PAYMENT_SWEEP_INTERVAL", time.Minute),

		PesapalBaseURL:        r.str("PESAPAL_BASE_URL", "https://pay.pesapal.com/v3"),
		PesapalConsumerKey:    r.str("PESAPAL_CONSUMER_KEY", ""),
		PesapalConsumerSecret: r.str("PESAPAL_CONSUMER_SECRET", ""),
		PesapalNotificationID: r.str("PESAPAL_NOTIFICATION_ID", ""),
		PesapalCallbackURL:    r.str("PESAPAL_CALLBACK_URL", ""),
		PesapalCurrency:       r.str("PESAPAL_CURRENCY", "KES"),

		LogLevel: r.str("LOG_LEVEL", "info"),
	}
	if r.err != nil {
		return Config{}, r.err
	}

	switch cfg.DBDriver {
	case "memory":
	case "mysql", "postgres":
		if cfg.DBDSN == "" {
			return Config{}, fmt.Errorf("DB_DSN is required when DB_DRIVER is %s", cfg.DBDriver)
		}
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be memory, mysql or postgres, got %q", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.FlatDeliveryFee.IsNegative() || cfg.FreeDeliveryThreshold.IsNegative() || cfg.LoyaltyPointsPerUnit.IsNegative() {
		return Config{}, fmt.Errorf("delivery and loyalty amounts must not be negative")
	}
	return cfg, nil
}

// OnlinePaymentsEnabled reports whether Pesapal credentials are configured.
func (c Config) OnlinePaymentsEnabled() bool {
	return c.PesapalConsumerKey != "" && c.PesapalConsumerSecret != "" && c.PesapalNotificationID != ""
}

// envReader remembers the first malformed variable.
type envReader struct {
	err error
}

func (r *envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *envReader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *envReader) fail(key, raw string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err == nil && d <= 0 {
		err = fmt.Errorf("must be positive")
	}
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return d
}

func (r *envReader) decimal(key string, def decimal.Decimal) decimal.Decimal {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return d
}

func (r *envReader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, raw, err)
		return def
	}
	return b
}
