package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewhitfield/tend/internal/config"
	"github.com/ewhitfield/tend/internal/database"
	"github.com/ewhitfield/tend/internal/logging"
	"github.com/ewhitfield/tend/internal/push"
	"github.com/ewhitfield/tend/internal/server"
)

func main() {
	configPath := os.Getenv("TEND_CONFIG")
	if configPath == "" {
		configPath = "tend.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// First start: mint a VAPID key pair and persist it so subscriptions
	// survive restarts.
	if cfg.Push.VAPIDPublicKey == "" || cfg.Push.VAPIDPrivateKey == "" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("generate VAPID keys: %v", err)
		}
		cfg.Push.VAPIDPublicKey = pub
		cfg.Push.VAPIDPrivateKey = priv
		if err := config.Save(configPath, cfg); err != nil {
			logger.Warn("persist generated VAPID keys", "error", err)
		} else {
			logger.Info("generated VAPID key pair", "config", configPath)
		}
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, push.Config{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
	}, logger)

	if sweeper := srv.Sweeper(); sweeper != nil {
		if err := sweeper.Start(); err != nil {
			log.Fatalf("start reminder sweeper: %v", err)
		}
		defer sweeper.Stop()
	}

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tend listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
