package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rsvpbot/internal/bot"
	"rsvpbot/internal/config"
	"rsvpbot/internal/logger"
	"rsvpbot/internal/render"
	"rsvpbot/internal/services"
	"rsvpbot/internal/status"
	"rsvpbot/internal/storage"
	"rsvpbot/internal/telegram"
)

func main() {
	flags := pflag.NewFlagSet("rsvpbot", pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "dotenv file loaded before the environment")
	debug := flags.Bool("debug", false, "log Telegram API traffic and debug messages")
	httpAddr := flags.String("http-addr", "", "listen address of the status server (empty disables it)")
	dataDir := flags.String("data-dir", "", "directory of the file storage backend")
	backend := flags.String("storage", "", "storage backend: file, sqlite or postgres")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if flags.Changed("debug") {
		cfg.BotDebug = *debug
	}
	if flags.Changed("http-addr") {
		cfg.HTTPAddr = *httpAddr
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = *dataDir
	}
	if flags.Changed("storage") {
		cfg.StorageBackend = *backend
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	log, err := logger.New(cfg.Environment, cfg.BotDebug)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.StorageBackend,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	}, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close storage", zap.Error(err))
		}
	}()

	client, err := telegram.New(cfg.BotToken, cfg.BotDebug, log)
	if err != nil {
		log.Fatal("Failed to connect to Telegram", zap.Error(err))
	}
	log.Info("Bot starting", zap.String("environment", cfg.Environment), zap.String("storage", cfg.StorageBackend))

	events := services.NewEventService(store, log)
	groups := services.NewGroupService(store, client, log)
	publisher := render.NewPublisher(client, log, cfg.NameLookupConcurrency)
	b := bot.New(client, events, groups, publisher, log, bot.Options{
		UserName:  client.UserName(),
		NoticeTTL: cfg.NoticeTTL,
	})

	var server *http.Server
	if cfg.HTTPAddr != "" {
		if cfg.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		server = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           status.NewHandler(events, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("Status server starting", zap.String("address", cfg.HTTPAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Status server failed", zap.Error(err))
			}
		}()
	}

	updates, err := client.Updates(60)
	if err != nil {
		log.Fatal("Failed to start polling", zap.Error(err))
	}
	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		client.Stop()
	}()

	if err := b.Run(ctx, updates); err != nil {
		log.Error("Update loop stopped", zap.Error(err))
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to stop status server", zap.Error(err))
		}
	}
	log.Info("Stopped")
}
