package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"planmark/api/internal/app"
	"planmark/api/internal/attachments"
	"planmark/api/internal/config"
	"planmark/api/internal/gitrepo"
	"planmark/api/internal/logging"
	"planmark/api/internal/search"
	"planmark/api/internal/share"
	"planmark/api/internal/store"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	if err := os.MkdirAll(cfg.ReposDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ReposDir).Msg("failed to create repos dir")
	}

	dataStore := store.NewPostgresStore(db)
	gitService := gitrepo.New(cfg.ReposDir)

	var index search.Indexer
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		index = meiliClient
		log.Info().Str("url", cfg.MeiliURL).Msg("using meilisearch")
	}
	searchService := search.NewService(index, search.NewPgFTS(db))

	service := app.New(cfg, dataStore, gitService, searchService)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		shareStore, err := share.NewRedisStore(cfg.RedisURL, cfg.ShareTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer shareStore.Close()
		service.WithShareStore(shareStore)
	} else {
		log.Warn().Msg("REDIS_URL not set, share links disabled")
	}

	objects, err := attachments.New(ctx, attachments.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("object storage connection failed")
	}
	if !objects.Enabled() {
		log.Warn().Msg("MINIO_ENDPOINT not set, image attachments disabled")
	}
	service.WithAttachments(objects)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("planmark api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
