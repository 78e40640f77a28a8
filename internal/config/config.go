package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the full runtime configuration. It is loaded once at startup
// and passed to constructors; nothing mutates it afterwards.
type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL string

	// Marketplace Fulfillment API configuration
	MarketplaceBaseURL string
	MarketplaceAPIVer  string
	TenantID           string
	ClientID           string
	ClientSecret       string
	TokenScope         string

	// Lifecycle behavior flags
	AcceptSubscriptionUpdates bool
	AutoProvisioningSupported bool

	// Operation polling defaults (seconds / attempts)
	OperationPollInterval    int
	OperationPollMaxAttempts int

	// Webhook verification
	WebhookSecret string

	// Publisher portal API key (inbound auth)
	PublisherAPIKey string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	ServiceName string
}

// Load reads the environment (and an optional .env file) into a Config.
func Load() (*Config, error) {
	// Load .env file; a missing file is fine
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Mode:        getEnv("GIN_MODE", "debug"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		MarketplaceBaseURL: getEnv("MARKETPLACE_API_BASE_URL", "https://marketplaceapi.microsoft.com/api"),
		MarketplaceAPIVer:  getEnv("MARKETPLACE_API_VERSION", "2018-08-31"),
		TenantID:           getEnv("MARKETPLACE_TENANT_ID", ""),
		ClientID:           getEnv("MARKETPLACE_CLIENT_ID", ""),
		ClientSecret:       getEnv("MARKETPLACE_CLIENT_SECRET", ""),
		TokenScope:         getEnv("MARKETPLACE_TOKEN_SCOPE", "20e940b3-4c77-4b0b-9a53-9e16a1b010a7/.default"),

		AcceptSubscriptionUpdates: getEnvBool("ACCEPT_SUBSCRIPTION_UPDATES", true),
		AutoProvisioningSupported: getEnvBool("AUTOMATIC_PROVISIONING_SUPPORTED", false),

		OperationPollInterval:    getEnvInt("OPERATION_POLL_INTERVAL_SECONDS", 5),
		OperationPollMaxAttempts: getEnvInt("OPERATION_POLL_MAX_ATTEMPTS", 100),

		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
		PublisherAPIKey: getEnv("PUBLISHER_API_KEY", ""),

		BrevoAPIKey:    getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail: getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:  getEnv("BREVO_FROM_NAME", "Marketplace Portal"),

		ServiceName: getEnv("SERVICE_NAME", "fulfillment-api"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
