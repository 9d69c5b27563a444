package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omeguy/tracy/internal/config"
	"github.com/omeguy/tracy/internal/engine"
	"github.com/omeguy/tracy/internal/logger"
	"github.com/omeguy/tracy/internal/market"
	"github.com/omeguy/tracy/internal/market/bridge"
	"github.com/omeguy/tracy/internal/market/paper"
	"github.com/omeguy/tracy/internal/notify"
	"github.com/omeguy/tracy/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	logger.Setup(cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn := newConnector(cfg)
	trades, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
	if err := trades.CreateTables(ctx); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
	messenger := notify.NewMessenger(cfg.WebhookURL)

	// Prometheus exposition; a failure here is worth knowing about but not
	// worth refusing to trade over.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("metrics server: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("shutdown signal received")
		cancel()
	}()

	log.Printf("tracy starting: %d symbols, connector %s", len(cfg.Trading.Symbols), conn.Name())
	messenger.Send("🚀 Tracy online")

	engine.New(cfg, conn, trades, messenger).Run(ctx)

	messenger.Send("🛑 Tracy shut down")
	log.Println("shutdown complete")
}

func newConnector(cfg *config.Config) market.Connector {
	if cfg.Paper {
		return paper.New()
	}
	return bridge.New(cfg.Bridge.URL, cfg.Bridge.MaxRetries, cfg.RetryDelay())
}

func newStore(ctx context.Context, cfg *config.Config) (store.TradeStore, error) {
	if cfg.Paper || cfg.DatabaseURL == "" {
		log.Println("using in-memory trade store")
		return store.NewMemoryStore(), nil
	}
	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store.NewPostgresStore(pool), nil
}
