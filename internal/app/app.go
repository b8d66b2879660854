// Package app wires the whole server together: configuration, database,
// services, and the HTTP listener.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakshee44566/4-IN-A-ROW/internal/auth"
	"github.com/sakshee44566/4-IN-A-ROW/internal/lobby"
	"github.com/sakshee44566/4-IN-A-ROW/internal/match"
	servernet "github.com/sakshee44566/4-IN-A-ROW/internal/net"
	"github.com/sakshee44566/4-IN-A-ROW/internal/net/ws"
	"github.com/sakshee44566/4-IN-A-ROW/internal/session"
	"github.com/sakshee44566/4-IN-A-ROW/internal/store"
)

const devSecret = "dev-secret-change-me"

// Config is everything the server needs to start.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	ClientDir   string
	Logger      *log.Logger
}

// ConfigFromEnv loads .env if present and reads the process environment.
// Missing values that have safe development defaults are defaulted with a
// warning; DATABASE_URL has no default and is validated in Run.
func ConfigFromEnv(logger *log.Logger) Config {
	if logger == nil {
		logger = log.Default()
	}
	if err := godotenv.Load(); err == nil {
		logger.Printf("loaded configuration from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Printf("JWT_SECRET not set, using an insecure development secret")
		secret = devSecret
	}

	return Config{
		Addr:        ":" + port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   secret,
		ClientDir:   os.Getenv("CLIENT_DIR"),
		Logger:      logger,
	}
}

// Run starts the server and blocks until the listener fails or ctx is
// cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	st, err := store.Open(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	authSvc := auth.NewService(st, cfg.JWTSecret, logger)
	sessions := session.NewRegistry(logger)
	queue := lobby.NewQueue()
	matches := match.NewCoordinator(match.Config{
		Sessions: sessions,
		Recorder: st,
		Logger:   logger,
	})
	gateway := ws.NewGateway(ws.GatewayConfig{
		Auth:     authSvc,
		Sessions: sessions,
		Queue:    queue,
		Matches:  matches,
		Logger:   logger,
	})

	handler := servernet.NewHTTPHandler(servernet.Services{
		Auth:     authSvc,
		Records:  st,
		Sessions: sessions,
		Matches:  matches,
		Queue:    queue,
		Socket:   gateway,
	}, servernet.HTTPHandlerConfig{
		ClientDir: cfg.ClientDir,
		Logger:    logger,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	logger.Printf("server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
