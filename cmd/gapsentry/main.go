package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/gapsentry/internal/config"
	"github.com/rewired-gh/gapsentry/internal/kalshi"
	"github.com/rewired-gh/gapsentry/internal/logger"
	"github.com/rewired-gh/gapsentry/internal/metrics"
	"github.com/rewired-gh/gapsentry/internal/news"
	"github.com/rewired-gh/gapsentry/internal/polymarket"
	"github.com/rewired-gh/gapsentry/internal/scanner"
	"github.com/rewired-gh/gapsentry/internal/storage"
	"github.com/rewired-gh/gapsentry/internal/telegram"
)

const version = "1.0.0"

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	once       = flag.Bool("once", false, "Run a single scan cycle and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath, cfg.Storage.MaxSeenNews)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	polyClient := polymarket.NewClient(
		cfg.Polymarket.GammaAPIURL,
		cfg.Polymarket.Limit,
		cfg.Polymarket.Timeout,
		cfg.Polymarket.MaxRetries,
		cfg.Polymarket.RetryDelayBase,
	)
	kalshiClient := kalshi.NewClient(
		cfg.Kalshi.APIURL,
		cfg.Kalshi.Limit,
		cfg.Kalshi.Timeout,
		cfg.Kalshi.MaxRetries,
		cfg.Kalshi.RetryDelayBase,
	)
	newsClient := news.NewClient(cfg.News.Timeout)
	newsFilter := news.NewFilter(cfg.News.Keywords)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.ListenAddr, Handler: mux}
		go func() {
			logger.Info("Metrics listening on %s", cfg.Metrics.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server stopped: %v", err)
			}
		}()
		defer srv.Close()
	}

	var deliver scanner.Deliverer
	if telegramClient != nil {
		deliver = telegramClient
	}
	scan := scanner.New(cfg.Alerts, store, polyClient, kalshiClient, newsClient,
		cfg.News.Feeds, newsFilter, deliver, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
		if err := telegramClient.SendStartup(version); err != nil {
			logger.Warn("Failed to send startup notification: %v", err)
		}
	}

	logger.Info("Starting scan service (interval: %v, threshold: %d bps, similarity floor: %.2f)",
		cfg.Alerts.ScanInterval,
		cfg.Alerts.ThresholdBps,
		cfg.Alerts.SimilarityFloor,
	)

	consecutiveFailures := 0
	cyclesDone := 0

	runCycle := func() {
		report, err := scan.RunCycle(ctx)
		if err != nil {
			logger.Warn("Skipping cycle: %v", err)
			return
		}
		cyclesDone++

		if cycleErr := report.Err(); cycleErr != nil {
			consecutiveFailures++
			logger.Error("Scan cycle %s finished with errors: %v", report.CycleID, cycleErr)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(cycleErr); sendErr != nil {
					logger.Warn("Failed to send error notification: %v", sendErr)
				}
			}
			return
		}

		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification: %v", sendErr)
			}
		}
		consecutiveFailures = 0

		if telegramClient != nil && cyclesDone%cfg.Alerts.HeartbeatEvery == 0 {
			if err := telegramClient.SendHeartbeat(cyclesDone); err != nil {
				logger.Warn("Failed to send heartbeat: %v", err)
			}
		}
	}

	logger.Debug("Running initial scan cycle")
	runCycle()

	if *once {
		logger.Info("Single cycle complete, exiting")
		return
	}

	ticker := time.NewTicker(cfg.Alerts.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled scan cycle")
			runCycle()
		}
	}
}
