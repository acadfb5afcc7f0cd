package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campus-planet/chat-service/config"
	"github.com/campus-planet/chat-service/internal/postgres"
	"github.com/campus-planet/chat-service/internal/security"
	"github.com/campus-planet/chat-service/internal/service"
	httpx "github.com/campus-planet/chat-service/internal/transport/http"
	"github.com/campus-planet/chat-service/internal/transport/ws"
	"github.com/campus-planet/chat-service/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.Postgres.DSN,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- repos ---
	userRepo := postgres.NewUserRepository(pool)
	courseRepo := postgres.NewCourseRepository(pool)
	chatRepo := postgres.NewChatRepository(pool)
	msgRepo := postgres.NewMessageRepository(pool)

	// --- services ---
	verifier := security.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.ClockSkewDuration())
	identitySvc := service.NewIdentityService(verifier, userRepo)
	chatSvc := service.NewChatService(chatRepo, msgRepo)
	accessSvc := service.NewAccessService(courseRepo, userRepo, chatSvc, chatRepo)

	// --- WS hub & server ---
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, identitySvc, accessSvc, chatSvc)
	wsServer.SetPingInterval(cfg.PingIntervalDuration())

	// --- HTTP ---
	handler := httpx.NewHandler(accessSvc, chatSvc, identitySvc)
	router := httpx.NewRouter(handler, identitySvc, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
