package myconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	FrontendURL string `yaml:"frontendUrl"`

	StoreBackend  string `yaml:"storeBackend"`
	StockBackend  string `yaml:"stockBackend"`
	PubSubBackend string `yaml:"pubsubBackend"`
	QueueBackend  string `yaml:"queueBackend"`

	ProjectID  string `yaml:"projectId"`
	LocationID string `yaml:"locationId"`
	QueueName  string `yaml:"queueName"`

	DatabaseURL   string   `yaml:"databaseUrl"`
	RedisAddr     string   `yaml:"redisAddr"`
	RedisPassword string   `yaml:"redisPassword"`
	RedisDB       int      `yaml:"redisDb"`
	KafkaBrokers  []string `yaml:"kafkaBrokers"`

	StripeSecretKey          string        `yaml:"stripeSecretKey"`
	StripeWebhookSecret      string        `yaml:"stripeWebhookSecret"`
	CartMetadataSecret       string        `yaml:"cartMetadataSecret"`
	CheckoutCurrency         string        `yaml:"checkoutCurrency"`
	StripePaymentMethodTypes []string      `yaml:"stripePaymentMethodTypes"`
	WebhookTolerance         time.Duration `yaml:"webhookTolerance"`

	SMTPHost            string        `yaml:"smtpHost"`
	SMTPPort            int           `yaml:"smtpPort"`
	SMTPUsername        string        `yaml:"smtpUsername"`
	SMTPPassword        string        `yaml:"smtpPassword"`
	SMTPFrom            string        `yaml:"smtpFrom"`
	NotificationTimeout time.Duration `yaml:"notificationTimeout"`

	AmountToleranceCents int64  `yaml:"amountToleranceCents"`
	AdminUsername        string `yaml:"adminUsername"`
	AdminPassword        string `yaml:"adminPassword"`

	OutboxPollInterval time.Duration `yaml:"outboxPollInterval"`
	SeedDemoProducts   bool          `yaml:"seedDemoProducts"`
}

func Defaults() Config {
	return Config{
		Port:                     "8080",
		FrontendURL:              "http://localhost:5173",
		StoreBackend:             "memory",
		QueueName:                "default",
		CheckoutCurrency:         "usd",
		StripePaymentMethodTypes: []string{"card"},
		WebhookTolerance:         5 * time.Minute,
		SMTPPort:                 587,
		SMTPFrom:                 "orders@marketplace.example.com",
		NotificationTimeout:      10 * time.Second,
		OutboxPollInterval:       5 * time.Second,
		SeedDemoProducts:         true,
	}
}

// Load applies defaults, then the optional yaml file, then the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	err := cfg.applyEnv()
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.FrontendURL = strings.TrimSuffix(getEnvOrDefault("FRONTEND_URL", cfg.FrontendURL), "/")

	cfg.StoreBackend = getEnvOrDefault("STORE_BACKEND", cfg.StoreBackend)
	cfg.StockBackend = getEnvOrDefault("STOCK_BACKEND", cfg.StockBackend)
	cfg.PubSubBackend = getEnvOrDefault("PUBSUB_BACKEND", cfg.PubSubBackend)
	cfg.QueueBackend = getEnvOrDefault("QUEUE_BACKEND", cfg.QueueBackend)

	cfg.ProjectID = getEnvOrDefault("GOOGLE_CLOUD_PROJECT", cfg.ProjectID)
	cfg.LocationID = getEnvOrDefault("LOCATION_ID", cfg.LocationID)
	cfg.QueueName = getEnvOrDefault("QUEUE_NAME", cfg.QueueName)

	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisAddr = getEnvOrDefault("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.KafkaBrokers = getEnvAsList("KAFKA_BROKERS", cfg.KafkaBrokers)

	cfg.StripeSecretKey = getEnvOrDefault("STRIPE_SECRET_KEY", cfg.StripeSecretKey)
	cfg.StripeWebhookSecret = getEnvOrDefault("STRIPE_WEBHOOK_SECRET", cfg.StripeWebhookSecret)
	cfg.CartMetadataSecret = getEnvOrDefault("CART_METADATA_SECRET", cfg.CartMetadataSecret)
	cfg.CheckoutCurrency = getEnvOrDefault("CHECKOUT_CURRENCY", cfg.CheckoutCurrency)
	cfg.StripePaymentMethodTypes = getEnvAsList("STRIPE_PAYMENT_METHOD_TYPES", cfg.StripePaymentMethodTypes)

	cfg.SMTPHost = getEnvOrDefault("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPUsername = getEnvOrDefault("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = getEnvOrDefault("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = getEnvOrDefault("SMTP_FROM", cfg.SMTPFrom)

	cfg.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnvOrDefault("ADMIN_PASSWORD", cfg.AdminPassword)

	var err error
	var errs []error

	cfg.RedisDB, err = getEnvAsInt("REDIS_DB", cfg.RedisDB)
	errs = append(errs, err)
	cfg.SMTPPort, err = getEnvAsInt("SMTP_PORT", cfg.SMTPPort)
	errs = append(errs, err)
	tolerance, err := getEnvAsInt("AMOUNT_TOLERANCE_CENTS", int(cfg.AmountToleranceCents))
	cfg.AmountToleranceCents = int64(tolerance)
	errs = append(errs, err)
	cfg.WebhookTolerance, err = getEnvAsDuration("WEBHOOK_TOLERANCE", cfg.WebhookTolerance)
	errs = append(errs, err)
	cfg.NotificationTimeout, err = getEnvAsDuration("NOTIFICATION_TIMEOUT", cfg.NotificationTimeout)
	errs = append(errs, err)
	cfg.OutboxPollInterval, err = getEnvAsDuration("OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	errs = append(errs, err)
	cfg.SeedDemoProducts, err = getEnvAsBool("SEED_DEMO_PRODUCTS", cfg.SeedDemoProducts)
	errs = append(errs, err)

	return errors.Join(errs...)
}

// Validate rejects configurations the service cannot start with.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.StripeWebhookSecret == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}

	switch cfg.StoreBackend {
	case "memory":
	case "datastore":
		if cfg.ProjectID == "" {
			errs = append(errs, errors.New("GOOGLE_CLOUD_PROJECT is required for the datastore backend"))
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend))
	}

	switch cfg.StockBackend {
	case "":
	case "redis":
		if cfg.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis stock backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STOCK_BACKEND %q", cfg.StockBackend))
	}

	switch cfg.EffectivePubSubBackend() {
	case "log", "gcloud":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka pubsub backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PUBSUB_BACKEND %q", cfg.PubSubBackend))
	}

	switch cfg.EffectiveQueueBackend() {
	case "fake", "gcloud":
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend))
	}

	if cfg.WebhookTolerance <= 0 {
		errs = append(errs, errors.New("WEBHOOK_TOLERANCE must be positive"))
	}
	if cfg.NotificationTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFICATION_TIMEOUT must be positive"))
	}
	if cfg.AmountToleranceCents < 0 {
		errs = append(errs, errors.New("AMOUNT_TOLERANCE_CENTS must not be negative"))
	}

	return errors.Join(errs...)
}

// EffectiveCartMetadataSecret falls back to the webhook secret.
func (cfg Config) EffectiveCartMetadataSecret() string {
	if cfg.CartMetadataSecret != "" {
		return cfg.CartMetadataSecret
	}
	return cfg.StripeWebhookSecret
}

func (cfg Config) EffectiveStockBackend() string {
	if cfg.StockBackend != "" {
		return cfg.StockBackend
	}
	return cfg.StoreBackend
}

func (cfg Config) EffectivePubSubBackend() string {
	switch {
	case cfg.PubSubBackend != "":
		return cfg.PubSubBackend
	case len(cfg.KafkaBrokers) > 0:
		return "kafka"
	case cfg.ProjectID != "":
		return "gcloud"
	default:
		return "log"
	}
}

func (cfg Config) EffectiveQueueBackend() string {
	switch {
	case cfg.QueueBackend != "":
		return cfg.QueueBackend
	case cfg.ProjectID != "" && cfg.LocationID != "":
		return "gcloud"
	default:
		return "fake"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	result := []string{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
