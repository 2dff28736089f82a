package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	App      ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Drivers  DriverConfig
	Booking  BookingConfig
	Mailer   MailerConfig
	Payment  PaymentConfig
}

type ServerConfig struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// DriverConfig selects the backing implementation of the persistence and
// coordination capabilities. "memory" keeps everything inside one process.
type DriverConfig struct {
	Store        string
	Coordination string
}

type BookingConfig struct {
	FeeRateBasisPoints int
	OfferWindow        time.Duration
	SweepInterval      time.Duration
	PromotionLockTTL   time.Duration
}

type MailerConfig struct {
	Provider           string
	FromAddress        string
	FromName           string
	Region             string
	AccessKeyID        string
	SecretAccessKey    string
	InsecureSkipVerify bool
}

type PaymentConfig struct {
	// SandboxDecline makes the sandbox gateway refuse every charge.
	SandboxDecline bool
}

var AppConfig *Config

func LoadConfig() *Config {
	env := getEnv("APP_ENV", "development")
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("no .env file loaded: %v", err)
		}
	}

	AppConfig = &Config{
		App: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Drivers: DriverConfig{
			Store:        getEnv("STORE_DRIVER", DriverPostgres),
			Coordination: getEnv("COORDINATION_DRIVER", DriverRedis),
		},
		Booking: GetBookingConfig(),
		Mailer: MailerConfig{
			Provider:           getEnv("MAILER_PROVIDER", "noop"),
			FromAddress:        getEnv("MAILER_FROM_ADDRESS", "noreply@supperclub.local"),
			FromName:           getEnv("MAILER_FROM_NAME", "Supper Club"),
			Region:             getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
			InsecureSkipVerify: getEnvBool("MAILER_INSECURE_SKIP_VERIFY", false),
		},
		Payment: PaymentConfig{
			SandboxDecline: getEnvBool("PAYMENT_SANDBOX_DECLINE", false),
		},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	return &Config{
		App: ServerConfig{Port: "8081", Environment: "test", LogLevel: "warn"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5433", // test database runs on 5433
			User:     "postgres",
			Password: "postgres",
			DBName:   "test_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     "6380", // test redis runs on 6380
			Password: "",
			DB:       1,
		},
		Drivers: DriverConfig{Store: DriverMemory, Coordination: DriverMemory},
		Booking: BookingConfig{
			FeeRateBasisPoints: 1000,
			OfferWindow:        12 * time.Hour,
			SweepInterval:      time.Second,
			PromotionLockTTL:   5 * time.Second,
		},
		Mailer: MailerConfig{Provider: "noop"},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetBookingConfig() BookingConfig {
	feeRate, err := strconv.Atoi(getEnv("PLATFORM_FEE_BPS", "1000"))
	if err != nil {
		panic(err)
	}

	return BookingConfig{
		FeeRateBasisPoints: feeRate,
		OfferWindow:        getEnvDuration("OFFER_WINDOW", 12*time.Hour),
		SweepInterval:      getEnvDuration("SWEEP_INTERVAL", time.Minute),
		PromotionLockTTL:   getEnvDuration("PROMOTION_LOCK_TTL", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		panic(err)
	}
	return value
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var values []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
