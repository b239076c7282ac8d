package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"landrush/internal/mail"
	"landrush/internal/server"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	port := flag.String("port", "8080", "Server port")
	dbPath := flag.String("db", "data/landrush.db", "Database path")
	baseURL := flag.String("base-url", "", "Public address used in links and mails")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(parseLevel(env("LOG_LEVEL", *level)))

	// Environment variables override flags for cloud deployments
	cfg := server.Config{
		Addr:       ":" + env("PORT", *port),
		DBPath:     env("DB_PATH", *dbPath),
		BaseURL:    env("BASE_URL", *baseURL),
		SessionKey: os.Getenv("SESSION_KEY"),
		Mail: mail.Config{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Handle shutdown gracefully
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			done <- syscall.SIGTERM
		}
	}()

	<-done
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
