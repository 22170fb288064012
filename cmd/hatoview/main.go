package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"hatoview/internal/config"
	"hatoview/internal/dashboard"
	"hatoview/internal/database"
	"hatoview/internal/metrics"
	"hatoview/internal/session"
	"hatoview/internal/transport"
	"hatoview/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("hatoview %s\nCommit: %s\nBuilt: %s\n", web.Version, web.GitCommit, web.BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"backend":     cfg.Backend.URL,
		"store":       cfg.UserConfig.Store,
	}).Info("Starting hatoview")

	// The database only backs the bolt user config store.
	var store *database.BoltStore
	var stats metrics.StatsSource
	if cfg.UserConfig.Store == config.StoreBolt {
		store, err = database.NewBoltStore(cfg.Database.Path)
		if err != nil {
			logrus.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()
		stats = store
	}

	metricsCollector := metrics.NewCollector(stats)

	client, err := transport.New(transport.Options{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		Credentials: session.StaticCredentials{
			User:     cfg.Backend.User,
			Password: cfg.Backend.Password,
		},
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
		Metrics:           metricsCollector,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize backend client: %v", err)
	}

	userConfig, err := dashboard.NewUserConfigStore(cfg, client, store, metricsCollector)
	if err != nil {
		logrus.Fatalf("Failed to initialize user config store: %v", err)
	}

	engine, err := dashboard.NewEngine(dashboard.Options{
		Config:     cfg,
		Client:     client,
		UserConfig: userConfig,
		Metrics:    metricsCollector,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize dashboard engine: %v", err)
	}

	webServer := web.NewServer(cfg, engine, metricsCollector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := engine.Start(ctx); err != nil {
			logrus.WithError(err).Error("Dashboard engine failed to start")
		}
	}()

	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Web server shutdown failed")
	}
	engine.Stop()

	logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
