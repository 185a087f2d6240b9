package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultBaseURL          = "https://manage.example.com/api"
	defaultChunkSize        = 6 * 1024 * 1024
	defaultRenewalThreshold = 450 * time.Second
	defaultPollInterval     = 5 * time.Second
	defaultPollAttempts     = 600
	defaultDescriptionTag   = "Published by packbridge"
	defaultIconDir          = "icons"

	envBaseURL          = "PACKBRIDGE_BASE_URL"
	envToken            = "PACKBRIDGE_TOKEN"
	envChunkSize        = "PACKBRIDGE_CHUNK_SIZE"
	envRenewalThreshold = "PACKBRIDGE_RENEWAL_THRESHOLD_SEC"
	envPollInterval     = "PACKBRIDGE_POLL_INTERVAL_SEC"
	envPollAttempts     = "PACKBRIDGE_POLL_ATTEMPTS"
	envDescriptionTag   = "PACKBRIDGE_DESCRIPTION_TAG"
	envBlockPutRetries  = "PACKBRIDGE_BLOCK_PUT_RETRIES"
	envRedisURL         = "PACKBRIDGE_REDIS_URL"
	envNATSURL          = "PACKBRIDGE_NATS_URL"
	envIconDir          = "PACKBRIDGE_ICON_DIR"
)

// Config holds runtime configuration for the publishing engine.
type Config struct {
	BaseURL          string
	Token            string
	ChunkSize        int64
	RenewalThreshold time.Duration
	PollInterval     time.Duration
	PollAttempts     int
	DescriptionTag   string
	BlockPutRetries  int
	RedisURL         string
	NATSURL          string
	IconDir          string
}

// Load returns configuration using environment variables with sane defaults.
func Load() *Config {
	return &Config{
		BaseURL:          envOr(envBaseURL, defaultBaseURL),
		Token:            os.Getenv(envToken),
		ChunkSize:        envInt64(envChunkSize, defaultChunkSize),
		RenewalThreshold: envSeconds(envRenewalThreshold, defaultRenewalThreshold),
		PollInterval:     envSeconds(envPollInterval, defaultPollInterval),
		PollAttempts:     int(envInt64(envPollAttempts, defaultPollAttempts)),
		DescriptionTag:   envOr(envDescriptionTag, defaultDescriptionTag),
		BlockPutRetries:  int(envInt64(envBlockPutRetries, 0)),
		RedisURL:         os.Getenv(envRedisURL),
		NATSURL:          os.Getenv(envNATSURL),
		IconDir:          envOr(envIconDir, defaultIconDir),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return time.Duration(n * float64(time.Second))
}
