package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all runtime settings, loaded once at startup.
type Config struct {
	MongoURL        string
	DatabaseName    string
	CollectionName  string
	GroqAPIKey      string
	GroqModel       string
	BigBasketBase   string
	AllowedOrigins  []string
	Host            string
	Port            string
	CacheTTL        time.Duration
	NavigateTimeout time.Duration
	ElementTimeout  time.Duration
}

// Load reads configuration from the environment. Every setting except the
// secrets has a working default so the service can start locally with an
// empty environment (the store and vision layer then report unavailable
// instead of failing startup).
func Load() *Config {
	return &Config{
		MongoURL:        os.Getenv("MONGODB_URL"),
		DatabaseName:    getEnv("MONGODB_DATABASE", "scraper_db"),
		CollectionName:  getEnv("MONGODB_COLLECTION", "fruits_veggies"),
		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		GroqModel:       getEnv("GROQ_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		BigBasketBase:   getEnv("BIGBASKET_BASE_URL", "https://www.bigbasket.com"),
		AllowedOrigins:  splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8000"),
		CacheTTL:        24 * time.Hour,
		NavigateTimeout: 30 * time.Second,
		ElementTimeout:  10 * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
