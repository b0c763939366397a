package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	APIBaseURL      string
	StreamMapper    string
	RefetchInterval time.Duration
	StaleTime       time.Duration
	QueryRetries    int
	HTTPTimeout     time.Duration
	MongoURI        string
	MongoDBName     string
	MongoColl       string
	KafkaBrokers    []string
	KafkaTopic      string
	KafkaDLQTopic   string
	KafkaGroupID    string
	ServiceName     string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	brokers := getEnv("KAFKA_BROKERS", "kafka:29092")

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		// PUBLIC_API_KEY is the variable the web build read the base address from.
		APIBaseURL:      getEnv("API_BASE_URL", getEnv("PUBLIC_API_KEY", "http://mock-feed:8081")),
		StreamMapper:    getEnv("STREAM_MAPPER", "catalog"),
		RefetchInterval: getDurationEnv("REFETCH_INTERVAL", 1*time.Minute),
		StaleTime:       getDurationEnv("STALE_TIME", 30*time.Second),
		QueryRetries:    getIntEnv("QUERY_RETRIES", 3),
		HTTPTimeout:     getDurationEnv("HTTP_TIMEOUT", 10*time.Second),
		MongoURI:        getEnv("MONGO_URI", "mongodb://mongodb:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "stream_catalog"),
		MongoColl:       getEnv("MONGO_COLLECTION", "streams"),
		KafkaBrokers:    splitList(brokers),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "stream_events"),
		KafkaDLQTopic:   getEnv("KAFKA_DLQ_TOPIC", "stream_events_dlq"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "stream-notify-group"),
		ServiceName:     getEnv("OTEL_SERVICE_NAME", "stream-catalog"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		// Try parsing as duration string (e.g. "1m", "60s")
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Try parsing as integer seconds
		if i, err := strconv.Atoi(value); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
