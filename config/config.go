package config

import (
	"os"
	"strconv"
	"strings"
)

// Config carries all deployment-time settings for the pipeline service.
// Values come from environment variables; .env loading happens at the entry
// point, not here.
type Config struct {
	// Cohere (primary provider)
	CohereAPIKey string
	CohereModel  string

	// OpenAI-compatible fallback provider
	FallbackAPIKey   string
	FallbackEndpoint string
	FallbackModel    string

	// Alternate provider used directly by one writer persona
	AltWriterAPIKey   string
	AltWriterEndpoint string
	AltWriterModel    string

	// SecondaryOnly bypasses the primary provider entirely. Deployment-time
	// switch for when the primary is known unavailable.
	SecondaryOnly bool

	// MaxRevisions bounds the critique/revision loop
	MaxRevisions int

	// Collaborators
	RedisAddr     string
	RedisPassword string
	DBPath        string
	KafkaBrokers  []string
	KafkaTopic    string
	CMSEndpoint   string
	CMSToken      string
	S3Bucket      string
	S3Region      string
	S3Prefix      string
}

// FromEnv builds a Config from environment variables with sensible defaults.
func FromEnv() Config {
	cfg := Config{
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		CohereModel:  getEnvOrDefault("COHERE_MODEL", "command-r-plus-08-2024"),

		FallbackAPIKey:   os.Getenv("OPENAI_API_KEY"),
		FallbackEndpoint: getEnvOrDefault("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		FallbackModel:    getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),

		AltWriterAPIKey:   os.Getenv("ALT_WRITER_API_KEY"),
		AltWriterEndpoint: getEnvOrDefault("ALT_WRITER_ENDPOINT", "https://api.deepseek.com/v1/chat/completions"),
		AltWriterModel:    getEnvOrDefault("ALT_WRITER_MODEL", "deepseek-chat"),

		SecondaryOnly: strings.EqualFold(os.Getenv("LLM_SECONDARY_ONLY"), "true"),
		MaxRevisions:  DefaultMaxRevisions,

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASS"),
		DBPath:        getEnvOrDefault("DB_PATH", "medscribe.db"),
		KafkaTopic:    getEnvOrDefault("KAFKA_TOPIC", "pipeline-events"),
		CMSEndpoint:   os.Getenv("CMS_ENDPOINT"),
		CMSToken:      os.Getenv("CMS_TOKEN"),
		S3Bucket:      strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:      strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Prefix:      strings.Trim(strings.TrimSpace(os.Getenv("S3_PREFIX")), "/"),
	}

	if v := os.Getenv("MAX_REVISIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRevisions = n
		}
	}

	if brokers := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
