package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Error0229/Lyryc-sub000/internal/config"
	"github.com/Error0229/Lyryc-sub000/pkg/logger"
	"github.com/Error0229/Lyryc-sub000/pkg/lyryc"
)

func main() {
	cfg := config.Load()
	log := logger.GetLogger()
	defer log.Sync()

	port := flag.Int("port", cfg.HTTPPort, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "Path to SQLite database")
	origins := flag.String("origins", strings.Join(cfg.AllowedOrigins, ","), "Comma-separated list of allowed origins (use * for all)")
	aiAlign := flag.Bool("ai", cfg.AIAlignment, "Refine timings against audio when an audio source is reported")
	flag.Parse()

	cfg.HTTPPort = *port
	cfg.DBPath = *dbPath
	cfg.AIAlignment = *aiAlign
	cfg.AllowedOrigins = nil
	for _, o := range strings.Split(*origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	if cfg.EnvFileLoaded {
		log.Infof("Loaded settings from .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := lyryc.NewServiceFromConfig(ctx, cfg, lyryc.WithLogger(log))
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(ctx, service, &ServerConfig{
		Port:           cfg.HTTPPort,
		DBPath:         cfg.DBPath,
		CacheBackend:   cfg.CacheBackend,
		AIAlignment:    cfg.AIAlignment,
		AllowedOrigins: cfg.AllowedOrigins,
		RequestTimeout: cfg.OverallTimeout + 30*time.Second,
	}, log)

	if err := server.Run(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		service.Close()
		os.Exit(1)
	}
}
