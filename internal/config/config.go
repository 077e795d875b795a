package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/scam-honeypot/internal/models"
	"github.com/wolfman30/scam-honeypot/internal/policy"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Engagement policy
	CautiousThreshold     float64
	AggressiveThreshold   float64
	MaxTurnsCautious      int
	MaxTurnsAggressive    int
	MaxEngagementDuration time.Duration
	StaleTurnThreshold    int
	RequiredIntelKinds    []string

	// Adapter time budgets
	ClassifySoftTimeout time.Duration
	ClassifyHardTimeout time.Duration
	PersonaTimeout      time.Duration
	ExtractorTimeout    time.Duration
	TurnTimeout         time.Duration

	// State
	StoreBackend  string // memory | redis | postgres
	LockBackend   string // local | redis
	StateTTL      time.Duration
	LockTTL       time.Duration
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Models
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	BedrockModelID      string
	BedrockFallbackID   string
	GeminiAPIKey        string
	GeminiModelID       string
	SemanticExtraction  bool

	// Patterns
	PatternsFile string

	// Report sinks
	ReportTable     string
	ReportBucket    string
	ReportQueueURL  string
	CallbackURL     string
	CallbackAPIKey  string
	CallbackTimeout time.Duration
	AlertEmailFrom  string
	AlertEmailTo    []string

	// HTTP
	APIKey          string
	AdminJWTSecret  string
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CautiousThreshold:     getEnvAsFloat("CAUTIOUS_THRESHOLD", 0.60),
		AggressiveThreshold:   getEnvAsFloat("AGGRESSIVE_THRESHOLD", 0.85),
		MaxTurnsCautious:      getEnvAsInt("MAX_TURNS_CAUTIOUS", 10),
		MaxTurnsAggressive:    getEnvAsInt("MAX_TURNS_AGGRESSIVE", 25),
		MaxEngagementDuration: getEnvAsDuration("MAX_ENGAGEMENT_DURATION", 600*time.Second),
		StaleTurnThreshold:    getEnvAsInt("STALE_TURN_THRESHOLD", 5),
		RequiredIntelKinds:    getEnvAsList("REQUIRED_INTEL_KINDS"),

		ClassifySoftTimeout: getEnvAsDuration("CLASSIFY_SOFT_TIMEOUT", 150*time.Millisecond),
		ClassifyHardTimeout: getEnvAsDuration("CLASSIFY_HARD_TIMEOUT", 90*time.Second),
		PersonaTimeout:      getEnvAsDuration("PERSONA_TIMEOUT", 20*time.Second),
		ExtractorTimeout:    getEnvAsDuration("EXTRACTOR_TIMEOUT", 10*time.Second),
		TurnTimeout:         getEnvAsDuration("TURN_TIMEOUT", 2*time.Minute),

		StoreBackend:  strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", "memory"))),
		LockBackend:   strings.ToLower(strings.TrimSpace(getEnv("LOCK_BACKEND", "local"))),
		StateTTL:      getEnvAsDuration("STATE_TTL", 7*24*time.Hour),
		LockTTL:       getEnvAsDuration("LOCK_TTL", 3*time.Minute),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		BedrockFallbackID:   getEnv("BEDROCK_FALLBACK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		SemanticExtraction:  getEnvAsBool("SEMANTIC_EXTRACTION", true),

		PatternsFile: getEnv("PATTERNS_FILE", ""),

		ReportTable:     getEnv("REPORT_TABLE", ""),
		ReportBucket:    getEnv("REPORT_BUCKET", ""),
		ReportQueueURL:  getEnv("REPORT_QUEUE_URL", ""),
		CallbackURL:     getEnv("CALLBACK_URL", ""),
		CallbackAPIKey:  getEnv("CALLBACK_API_KEY", ""),
		CallbackTimeout: getEnvAsDuration("CALLBACK_TIMEOUT", 5*time.Second),
		AlertEmailFrom:  getEnv("ALERT_EMAIL_FROM", ""),
		AlertEmailTo:    getEnvAsList("ALERT_EMAIL_TO"),

		APIKey:          getEnv("API_KEY", ""),
		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitPerSec: getEnvAsFloat("RATE_LIMIT_PER_SEC", 5),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// Policy converts the engagement settings into a policy configuration.
// Unknown kinds in REQUIRED_INTEL_KINDS are ignored.
func (c *Config) Policy() policy.Config {
	var kinds []models.IntelKind
	for _, raw := range c.RequiredIntelKinds {
		if k, ok := models.ParseKind(raw); ok {
			kinds = append(kinds, k)
		}
	}
	return policy.Config{
		CautiousThreshold:   c.CautiousThreshold,
		AggressiveThreshold: c.AggressiveThreshold,
		MaxTurnsCautious:    c.MaxTurnsCautious,
		MaxTurnsAggressive:  c.MaxTurnsAggressive,
		MaxDuration:         c.MaxEngagementDuration,
		StaleTurns:          c.StaleTurnThreshold,
		RequiredKinds:       kinds,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
