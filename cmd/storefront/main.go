package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cache"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/config"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/db"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/transport"
	"github.com/vasiliy-maslov/ecommerce-storefront/pkg/events"
	"github.com/vasiliy-maslov/ecommerce-storefront/pkg/metrics"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	log.Info().Msg("Storefront starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	var catalogCache cache.Cache
	if cfg.RedisAddr != "" {
		catalogCache = cache.NewRedisCache(cfg.RedisAddr, "storefront")
		log.Info().Str("addr", cfg.RedisAddr).Msg("Catalog cache enabled")
	}

	publisher := events.NewPublisher(cfg.KafkaBrokers)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()
	if publisher.Enabled() {
		log.Info().Str("brokers", cfg.KafkaBrokers).Msg("Order event publisher enabled")
	}

	srvMetrics := metrics.NewServerMetrics("api")

	router := transport.NewRouter(dbConn.Pool, catalogCache, publisher, srvMetrics)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
