package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/sahansera/bookshelf/internal/models"
)

type Config struct {
	HTTP_ADDR   string
	APP_ENV     string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	JWT_SECRET  string

	PAYHERE_MERCHANT_ID     string
	PAYHERE_MERCHANT_SECRET string
	PAYHERE_APP_ID          string
	PAYHERE_APP_SECRET      string
	PAYHERE_BASE_URL        string

	KAFKA_ADDRESS string
	ES_URL        string
	ES_USER       string
	ES_PASSWORD   string
	REDIS_ADDR    string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		HTTP_ADDR:   getenv("HTTP_ADDR", ":8080"),
		APP_ENV:     getenv("APP_ENV", "production"),
		LOG_LEVEL:   getenv("LOG_LEVEL", "info"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),
		JWT_SECRET:  os.Getenv("JWT_SECRET"),

		PAYHERE_MERCHANT_ID:     os.Getenv("PAYHERE_MERCHANT_ID"),
		PAYHERE_MERCHANT_SECRET: os.Getenv("PAYHERE_MERCHANT_SECRET"),
		PAYHERE_APP_ID:          os.Getenv("PAYHERE_APP_ID"),
		PAYHERE_APP_SECRET:      os.Getenv("PAYHERE_APP_SECRET"),
		PAYHERE_BASE_URL:        getenv("PAYHERE_BASE_URL", "https://sandbox.payhere.lk"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),
		ES_URL:        os.Getenv("ES_URL"),
		ES_USER:       os.Getenv("ES_USER"),
		ES_PASSWORD:   os.Getenv("ES_PASSWORD"),
		REDIS_ADDR:    os.Getenv("REDIS_ADDR"),
	}

	return config, nil
}

// Development reports whether verbose error details may be returned to
// clients.
func (c *Config) Development() bool {
	return strings.EqualFold(c.APP_ENV, "development")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Preferences{},
		&models.Address{},
		&models.Book{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}
