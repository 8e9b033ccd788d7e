package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL and SENDER_EMAIL
// are required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Queue. An empty AMQPURL selects the in-process queue.
	AMQPURL           string
	QueueName         string
	VisibilityTimeout time.Duration
	MaxDeliveries     int

	// Email gateway
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration
	SenderEmail  string
	AdminEmail   string

	// Dispatch
	BatchSize     int
	SnapshotLimit int

	// Batch processors
	Workers  int
	SendRate int
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	sender := os.Getenv("SENDER_EMAIL")
	if sender == "" {
		return nil, fmt.Errorf("SENDER_EMAIL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		AMQPURL:           os.Getenv("AMQP_URL"),
		QueueName:         getEnv("QUEUE_NAME", "campaign_batches"),
		VisibilityTimeout: getDuration("VISIBILITY_TIMEOUT", 2*time.Minute),
		MaxDeliveries:     getInt("MAX_DELIVERIES", 5),

		SMTPAddr:     getEnv("SMTP_ADDR", "localhost:587"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPTimeout:  getDuration("SMTP_TIMEOUT", 30*time.Second),
		SenderEmail:  sender,
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),

		BatchSize:     getInt("BATCH_SIZE", 50),
		SnapshotLimit: getInt("SNAPSHOT_LIMIT", 10000),

		Workers:  getInt("WORKERS", 5),
		SendRate: getInt("SEND_RATE_PER_SEC", 100),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
