package config

import (
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is stamped at build time with
// -ldflags "-X skincare-client/config.Version=<tag>".
var Version = "dev"

type Config struct {
	// Gateway bind address. The gateway serves a single session, so it
	// listens on loopback unless HOST says otherwise.
	Host          string
	Port          string
	Version       string
	Env           string
	LogLevel      string
	AllowedOrigin string
	// Backend REST API
	APIBaseURL string
	APITimeout time.Duration
	// Session persistence and cross-process auth channel.
	// Empty RedisURL keeps both in memory (single process).
	RedisURL    string
	AuthChannel string
	// Cache. A zero product TTL keeps entries for the process lifetime.
	CacheProductTTL      time.Duration
	CacheLocationTTL     time.Duration
	CacheCleanupInterval time.Duration
	// Stores
	HydrateConcurrency int
	// Gateway rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
	// Business Rules
	MaxCartQuantity int
}

func LoadConfig() *Config {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := &Config{
		Host:          getEnv("HOST", "127.0.0.1"),
		Port:          getEnv("PORT", "8090"),
		Version:       getEnv("APP_VERSION", Version),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:5173"),

		APIBaseURL: strings.TrimSuffix(getEnv("API_BASE_URL", "http://localhost:3000/api"), "/"),
		APITimeout: getDurationEnv("API_TIMEOUT", 15*time.Second),

		RedisURL:    getEnv("REDIS_URL", ""),
		AuthChannel: getEnv("AUTH_CHANNEL", "storefront:auth"),

		CacheProductTTL:      getDurationEnv("CACHE_PRODUCT_TTL", 0),
		CacheLocationTTL:     getDurationEnv("CACHE_LOCATION_TTL", 6*time.Hour),
		CacheCleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 10*time.Minute),

		HydrateConcurrency: getIntEnv("HYDRATE_CONCURRENCY", 6),

		RateLimitRPS:   getFloatEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 40),

		MaxCartQuantity: getIntEnv("MAX_CART_QUANTITY", 99),
	}

	cfg.Validate()
	return cfg
}

// ListenAddr is the host:port the gateway binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) Validate() {
	if c.APIBaseURL == "" {
		log.Fatal("CRITICAL: API_BASE_URL environment variable is required")
	}
	if c.HydrateConcurrency < 1 {
		log.Println("WARNING: HYDRATE_CONCURRENCY below 1, using 1")
		c.HydrateConcurrency = 1
	}
	if c.MaxCartQuantity < 1 {
		log.Println("WARNING: MAX_CART_QUANTITY below 1, using 1")
		c.MaxCartQuantity = 1
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}
