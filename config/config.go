package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

var (
	MAIN_ROUTES string
	APP_PORT    string
	APP_ENV     string
	LOG_LEVEL   string

	JWTSecret string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	SnowflakeNode int64

	// Counting engine tuning
	SyncBatchSize        int
	SimilarityThreshold  float64
	NotableAbsThreshold  float64
	NotableRelThreshold  float64
	ConsecutiveRetries   int
	ConsecutiveBackoffMs int

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPSender   string
	AdminEmails  []string

	ProcessorPendingDir   string
	ProcessorProcessedDir string
	ProcessorErrorDir     string

	allowedOrigins map[string]bool
)

// LoadConfig membaca file .env dan menginisialisasi variabel konfigurasi
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Server
	MAIN_ROUTES = getEnv("MAIN_ROUTES", "/api/v1")
	APP_PORT = getEnv("APP_PORT", "9000")
	APP_ENV = getEnv("APP_ENV", "development")
	LOG_LEVEL = getEnv("LOG_LEVEL", "info")

	JWTSecret = getEnv("JWT_SECRET", "inventario_key_secret")

	// Database
	DBDriver = getEnv("DB_DRIVER", "mssql")
	DBHost = getEnv("DB_HOST", "localhost")
	DBPort = getEnv("DB_PORT", "1433")
	DBUser = getEnv("DB_USER", "golang")
	DBPassword = getEnv("DB_PASSWORD", "")
	DBName = getEnv("DB_NAME", "inventario")
	DBPath = getEnv("DB_PATH", "inventario.db")

	SnowflakeNode = int64(getEnvAsInt("SNOWFLAKE_NODE", 1))

	SyncBatchSize = getEnvAsInt("SYNC_BATCH_SIZE", 500)
	SimilarityThreshold = getEnvAsFloat("SIMILARITY_THRESHOLD", 0.6)
	NotableAbsThreshold = getEnvAsFloat("NOTABLE_ABS_THRESHOLD", 5)
	NotableRelThreshold = getEnvAsFloat("NOTABLE_REL_THRESHOLD", 0.10)
	ConsecutiveRetries = getEnvAsInt("CONSECUTIVE_CHECK_RETRIES", 3)
	ConsecutiveBackoffMs = getEnvAsInt("CONSECUTIVE_CHECK_BACKOFF_MS", 200)

	// Mail
	SMTPHost = getEnv("SMTP_HOST", "")
	SMTPPort = getEnvAsInt("SMTP_PORT", 587)
	SMTPUser = getEnv("SMTP_USER", "")
	SMTPPassword = getEnv("SMTP_PASSWORD", "")
	SMTPSender = getEnv("SMTP_SENDER", SMTPUser)
	AdminEmails = getEnvAsList("ADMIN_EMAILS")

	// Catalog folder processor
	ProcessorPendingDir = getEnv("PROCESSOR_PENDING_DIR", "catalog/pending")
	ProcessorProcessedDir = getEnv("PROCESSOR_PROCESSED_DIR", "catalog/processed")
	ProcessorErrorDir = getEnv("PROCESSOR_ERROR_DIR", "catalog/error")

	loadAllowedOrigins()
}

// getEnv membaca environment variable dengan nilai default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction reports whether APP_ENV selects production logging and defaults.
func IsProduction() bool {
	return strings.EqualFold(APP_ENV, "production") || getEnvAsBool("APP_PRODUCTION", false)
}

func loadAllowedOrigins() {
	allowedOrigins = make(map[string]bool)
	origins := getEnvAsList("ALLOWED_ORIGINS")
	if len(origins) == 0 {
		allowedOrigins["http://127.0.0.1:3000"] = true
		return
	}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}
}

func SetupCORS(app *fiber.App) {
	app.Use(func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if allowedOrigins[origin] {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	})
}
