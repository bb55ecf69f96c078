package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string
	APIKey   string

	// Per-IP request rate limiting on the dialog endpoints; zero
	// disables limiting.
	RateLimit float64
	RateBurst int

	// Authored content (connecting text, response DB, lexicons, surveys)
	ResourcesDir string
	Languages    []string

	// Advisory mode asks the user to confirm the matched keypoint before
	// answering.
	AdvisoryMode       bool
	AdvisoryCandidates int

	// External scoring oracles
	KPMatchingEndpoint     string
	KPMatchingConfidence   float64
	IntentEndpoint         string
	IntentConfidence       float64
	ResponseScorerEndpoint string
	ScorerBatchSize        int
	OracleTimeout          time.Duration

	// Machine translation
	TranslatorEndpoint  string
	TranslatorAPIKey    string
	TranslatorLanguages []string

	// Candidate selection recency penalties
	ResponseUsageFactor   float64
	CannedTextUsageFactor float64

	// Coreference resolution theme
	CorefTheme   string
	CorefKeyword string

	// Session persistence
	StorageBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	DynamoTable    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Postgres dialog archive (empty disables archiving)
	DatabaseURL string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8100"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		APIKey:   getEnv("DIALOG_API_KEY", ""),

		RateLimit: getEnvAsFloat("RATE_LIMIT", 0),
		RateBurst: getEnvAsInt("RATE_BURST", 20),

		ResourcesDir: getEnv("RESOURCES_DIR", "resources"),
		Languages:    getEnvAsList("LANGUAGES", []string{"en"}),

		AdvisoryMode:       getEnvAsBool("ADVISORY_MODE", true),
		AdvisoryCandidates: getEnvAsInt("ADVISORY_CANDIDATES", 3),

		KPMatchingEndpoint:     getEnv("KP_MATCHING_ENDPOINT", ""),
		KPMatchingConfidence:   getEnvAsFloat("KP_MATCHING_CONFIDENCE", 0.4),
		IntentEndpoint:         getEnv("INTENT_CLASSIFIER_ENDPOINT", ""),
		IntentConfidence:       getEnvAsFloat("INTENT_CLASSIFIER_CONFIDENCE", 0.65),
		ResponseScorerEndpoint: getEnv("RESPONSE_SCORER_ENDPOINT", ""),
		ScorerBatchSize:        getEnvAsInt("SCORER_BATCH_SIZE", 32),
		OracleTimeout:          getEnvAsDuration("ORACLE_TIMEOUT", 60*time.Second),

		TranslatorEndpoint:  getEnv("TRANSLATOR_ENDPOINT", ""),
		TranslatorAPIKey:    getEnv("TRANSLATOR_API_KEY", ""),
		TranslatorLanguages: getEnvAsList("TRANSLATOR_LANGUAGES", nil),

		ResponseUsageFactor:   getEnvAsFloat("RESPONSE_USAGE_FACTOR", 0.5),
		CannedTextUsageFactor: getEnvAsFloat("CANNED_TEXT_USAGE_FACTOR", 0.7),

		CorefTheme:   getEnv("COREF_THEME", "the vaccine"),
		CorefKeyword: getEnv("COREF_KEYWORD", "vaccine"),

		StorageBackend: strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", "redis"))),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 0),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		DynamoTable:    getEnv("DYNAMO_SESSIONS_TABLE", "dialog_sessions"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
