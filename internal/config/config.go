package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string
	LogToDB     bool
	CORSOrigins string

	// Transition queue
	QueueBackend  string // "mongo" or "memory"
	WorkerCount   int
	LeaseDuration time.Duration
	PollInterval  time.Duration
	CallTimeout   time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	SweepSchedule string

	// Ownership mutator
	OwnershipBackend string // "mongo", "postgres" or "mysql"
	OwnershipDSN     string
	OwnershipTable   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "crm-workflow"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "crm-workflow"),
		LogToDB:     getEnv("LOG_TO_DB", "true") == "true",
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		QueueBackend:  getEnv("QUEUE_BACKEND", "mongo"),
		WorkerCount:   getEnvInt("WORKER_COUNT", 4),
		LeaseDuration: getEnvDuration("LEASE_DURATION", 2*time.Minute),
		PollInterval:  getEnvDuration("POLL_INTERVAL", time.Second),
		CallTimeout:   getEnvDuration("CALL_TIMEOUT", 10*time.Second),
		MaxAttempts:   getEnvInt("MAX_ATTEMPTS", 5),
		BackoffBase:   getEnvDuration("BACKOFF_BASE", 5*time.Second),
		BackoffMax:    getEnvDuration("BACKOFF_MAX", 10*time.Minute),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 30s"),

		OwnershipBackend: getEnv("OWNERSHIP_BACKEND", "mongo"),
		OwnershipDSN:     getEnv("OWNERSHIP_DSN", ""),
		OwnershipTable:   getEnv("OWNERSHIP_TABLE", "entity_ownership"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s=%q, using %d", key, value, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("Invalid %s=%q, using %s", key, value, fallback)
		return fallback
	}
	return d
}
