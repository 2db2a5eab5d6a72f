package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sahansera/bookshelf/internal/config"
	"github.com/sahansera/bookshelf/internal/es"
	"github.com/sahansera/bookshelf/internal/handlers"
	"github.com/sahansera/bookshelf/internal/handlers/cart"
	"github.com/sahansera/bookshelf/internal/logging"
	"github.com/sahansera/bookshelf/internal/mykafka"
	"github.com/sahansera/bookshelf/internal/orders"
	"github.com/sahansera/bookshelf/internal/payhere"
	httpserver "github.com/sahansera/bookshelf/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(configuration.PAYHERE_MERCHANT_SECRET, "PAYHERE_MERCHANT_SECRET")

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		topics := []string{"user_events", "cart_events", "order_events"}
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS}, topics)
		if err != nil {
			log.Fatal(err)
		}
	}

	var rdb *redis.Client
	if configuration.REDIS_ADDR != "" {
		rdb = redis.NewClient(&redis.Options{Addr: configuration.REDIS_ADDR})
	}

	var verifier payhere.Verifier
	if configuration.PAYHERE_APP_ID != "" && configuration.PAYHERE_APP_SECRET != "" {
		verifier = payhere.NewClient(
			configuration.PAYHERE_BASE_URL,
			configuration.PAYHERE_APP_ID,
			configuration.PAYHERE_APP_SECRET,
			rdb,
		)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:          db,
		AuthHandler: &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		BookHandler: &handlers.BookHandler{DB: db},
		UserHandler: &handlers.UserHandler{DB: db},
		CartHandler: &cart.CartHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		PaymentHandler: &handlers.PaymentHandler{
			DB:             db,
			JWTSecret:      jwtSecret,
			MerchantID:     configuration.PAYHERE_MERCHANT_ID,
			MerchantSecret: configuration.PAYHERE_MERCHANT_SECRET,
			Verifier:       verifier,
			Orders:         orders.NewService(db),
			Producer:       prod,
			Development:    configuration.Development(),
		},
	}

	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		deps.SearchHandler = &handlers.SearchHandler{ES: esClient, Index: "books"}
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("redis close error: %v", err)
		}
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
