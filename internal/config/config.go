package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string
	Port string

	DatabaseURL string
	RedisURL    string

	// Object storage (MinIO / S3-compatible)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageUseSSL    bool
	MediaBucket      string
	AudioBucket      string
	ReelsBucket      string
	SignedURLTTL     time.Duration

	// Speech vendors
	TTSBaseURL   string
	TTSAPIKey    string
	DefaultVoice string
	STTBaseURL   string
	STTAPIKey    string

	// Sequencing vendor (chat-completions style)
	SequenceBaseURL string
	SequenceAPIKey  string
	SequenceModel   string

	// Render/composition vendor
	RenderBaseURL         string
	RenderAPIKey          string
	RenderPollInterval    time.Duration
	RenderPollTimeout     time.Duration
	RenderPollErrorBudget int

	// Usage metering
	MonthlyReelQuota int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Env:  getEnvWithDefault("ENV", "development"),
		Port: getEnvWithDefault("PORT", "8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		StorageEndpoint:  getEnvWithDefault("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey: os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("STORAGE_SECRET_KEY"),
		StorageUseSSL:    getEnvBool("STORAGE_USE_SSL", false),
		MediaBucket:      getEnvWithDefault("MEDIA_BUCKET", "media"),
		AudioBucket:      getEnvWithDefault("AUDIO_BUCKET", "audio"),
		ReelsBucket:      getEnvWithDefault("REELS_BUCKET", "reels"),
		SignedURLTTL:     getEnvDuration("SIGNED_URL_TTL", time.Hour),

		TTSBaseURL:   getEnvWithDefault("TTS_BASE_URL", "https://api.elevenlabs.io"),
		TTSAPIKey:    os.Getenv("TTS_API_KEY"),
		DefaultVoice: getEnvWithDefault("TTS_DEFAULT_VOICE", "JBFqnCBsd6RMkjVDRZzb"),
		STTBaseURL:   getEnvWithDefault("STT_BASE_URL", "https://api.elevenlabs.io"),
		STTAPIKey:    os.Getenv("STT_API_KEY"),

		SequenceBaseURL: getEnvWithDefault("SEQUENCE_BASE_URL", "https://api.groq.com/openai"),
		SequenceAPIKey:  os.Getenv("SEQUENCE_API_KEY"),
		SequenceModel:   getEnvWithDefault("SEQUENCE_MODEL", "llama-3.3-70b-versatile"),

		RenderBaseURL:         os.Getenv("RENDER_BASE_URL"),
		RenderAPIKey:          os.Getenv("RENDER_API_KEY"),
		RenderPollInterval:    getEnvDuration("RENDER_POLL_INTERVAL", 3*time.Second),
		RenderPollTimeout:     getEnvDuration("RENDER_POLL_TIMEOUT", 10*time.Minute),
		RenderPollErrorBudget: getEnvInt("RENDER_POLL_ERROR_BUDGET", 5),

		MonthlyReelQuota: getEnvInt("MONTHLY_REEL_QUOTA", 50),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("WARNING: DATABASE_URL is not set")
	}

	return cfg
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
