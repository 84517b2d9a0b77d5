package config

import (
	"os"
	"strconv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Claim    ClaimConfig
	Notify   NotifyConfig
	Phone    PhoneConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	URL string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// ClaimConfig controls the ghost-job claim token window.
type ClaimConfig struct {
	TokenTTLHours int
	LinkBaseURL   string
}

// NotifyConfig controls optional external notification fan-out.
type NotifyConfig struct {
	SMSWebhookURL string
}

type PhoneConfig struct {
	DefaultCountryCode string
}

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DB_URL", ""),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-this-in-production"),
			ExpiryHours: getEnvAsInt("JWT_EXPIRY_HOURS", 24),
		},
		Claim: ClaimConfig{
			TokenTTLHours: getEnvAsInt("CLAIM_TOKEN_TTL_HOURS", 48),
			LinkBaseURL:   getEnv("CLAIM_LINK_BASE_URL", "https://app.roadsideassist.example"),
		},
		Notify: NotifyConfig{
			SMSWebhookURL: getEnv("SMS_WEBHOOK_URL", ""),
		},
		Phone: PhoneConfig{
			DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "+1"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
