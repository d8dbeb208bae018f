package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Config is everything tabletap reads from the environment. Redis and
// Kafka are optional: without Redis device state lives in memory,
// without Kafka no analytics events are published.
type Config struct {
	ListenAddr    string
	BackendURL    string
	PublicBaseURL string
	RedisAddr     string
	KafkaBroker   string
	KafkaTopic    string
	PollInterval  time.Duration
	MenuFallback  bool
	SessionTTL    time.Duration
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:    envOr("LISTEN_ADDR", ":8090"),
		BackendURL:    envOr("BACKEND_URL", "http://localhost:8080"),
		PublicBaseURL: envOr("PUBLIC_BASE_URL", "http://localhost:8090"),
		RedisAddr:     redisAddr(),
		KafkaBroker:   os.Getenv("KAFKA_BROKER"),
		KafkaTopic:    envOr("KAFKA_TOPIC", "customer-events"),
		PollInterval:  envDuration("POLL_INTERVAL_MS", 5000),
		MenuFallback:  envBool("MENU_FALLBACK", true),
		SessionTTL:    envDuration("SESSION_TTL_MS", 0),
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallbackMs int) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(fallbackMs) * time.Millisecond
	}
	ms, err := strconv.Atoi(value)
	if err != nil {
		return time.Duration(fallbackMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

func redisAddr() string {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return ""
	}
	port := envOr("REDIS_PORT", "6379")
	return host + ":" + port
}

func MustInitRedis(addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}

func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}
