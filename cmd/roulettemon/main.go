package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/roulettemon/internal/config"
	"github.com/rewired-gh/roulettemon/internal/feed"
	"github.com/rewired-gh/roulettemon/internal/logger"
	"github.com/rewired-gh/roulettemon/internal/models"
	"github.com/rewired-gh/roulettemon/internal/monitor"
	"github.com/rewired-gh/roulettemon/internal/storage"
	"github.com/rewired-gh/roulettemon/internal/telegram"
)

var configPath = flag.String("config", "", "Path to configuration file (defaults and ROULETTEMON_* env when empty)")

const usage = `Usage: roulettemon [-config path] <command> [args]

Commands:
  table add <id> <name>       register a table
  table list                  list tables with spin counts
  table rename <id> <name>    rename a table
  table rm <id>               delete a table and its history
  spin add -table <id> N...   record outcomes, oldest first
  spin undo -table <id>       remove the latest outcome
  spin clear -table <id>      remove every outcome of a table
  spin list -table <id> [-n N] latest outcomes with color, dozen and column
  import -table <id> [file]   parse pasted outcomes from a file or stdin
  export [file]               write a JSON backup
  restore <file>              replace all tables from a JSON backup
  analyze [-table <id>|-input file] [-window N] [-json]
  alerts [-k N] [-clear]      show the highest-scoring stored alerts
  simulate [-kind even|dozen] [-sims N] [-horizon N] [-stake X] [-seed N]
  watch                       run the monitoring loop
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if *configPath != "" {
		logger.Debug("Configuration loaded from %s", *configPath)
	}

	// simulate needs no database
	if args[0] == "simulate" {
		if err := runSimulate(args[1:]); err != nil {
			logger.Fatal("%v", err)
		}
		return
	}

	store, err := storage.New(cfg.Storage.MaxSpinsPerTable, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	if err := dispatch(cfg, store, args); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("%v", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func dispatch(cfg *config.Config, store *storage.Storage, args []string) error {
	switch args[0] {
	case "table":
		return runTable(store, args[1:])
	case "spin":
		return runSpin(store, args[1:])
	case "import":
		return runImport(store, args[1:])
	case "export":
		return runExport(store, args[1:])
	case "restore":
		return runRestore(store, args[1:])
	case "analyze":
		return runAnalyze(cfg, store, args[1:])
	case "alerts":
		return runAlerts(store, args[1:])
	case "watch":
		return runWatch(cfg, store)
	default:
		return errUsage
	}
}

func runWatch(cfg *config.Config, store *storage.Storage) error {
	var feedClient *feed.Client
	if cfg.Feed.Enabled {
		feedClient = feed.NewClient(cfg.Feed.BaseURL, cfg.Feed.Timeout, feed.ClientConfig{
			Limit:          cfg.Feed.Limit,
			MaxRetries:     cfg.Feed.MaxRetries,
			RetryDelayBase: cfg.Feed.RetryDelayBase,
		})
		if err := ensureFeedTables(store, cfg.Feed.Tables); err != nil {
			return err
		}
		logger.Info("Feed enabled for %d tables", len(cfg.Feed.Tables))
	} else {
		logger.Debug("Feed disabled, analyzing manually recorded spins only")
	}

	monitorConfig := monitor.Config{
		WindowSize:         cfg.Monitor.WindowSize,
		MinSpins:           cfg.Monitor.MinSpins,
		Threshold:          cfg.Monitor.Threshold,
		TopK:               cfg.Monitor.TopK,
		CooldownMultiplier: cfg.Monitor.CooldownMultiplier,
		CheckpointInterval: cfg.Monitor.CheckpointInterval,
		Analytics:          cfg.Analytics.Options(),
	}
	mon := monitor.New(store, monitorConfig)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		var err error
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		mon.Shutdown()
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.OnStatus(mon.Snapshot)
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting monitoring service (interval: %v, window_size: %d, threshold: %d, top_k: %d)",
		cfg.Monitor.PollInterval,
		cfg.Monitor.WindowSize,
		cfg.Monitor.Threshold,
		cfg.Monitor.TopK,
	)

	ticker := time.NewTicker(cfg.Monitor.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial monitoring cycle")
	handleCycleResult(runMonitoringCycle(ctx, feedClient, mon, store, telegramClient, cfg))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return nil

		case <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			handleCycleResult(runMonitoringCycle(ctx, feedClient, mon, store, telegramClient, cfg))
			if err := store.RotateSpins(); err != nil {
				logger.Warn("Failed to rotate spins: %v", err)
			}
		}
	}
}

// ensureFeedTables registers feed tables that are not yet known, named after their id.
func ensureFeedTables(store *storage.Storage, ids []string) error {
	for _, id := range ids {
		_, err := store.GetTable(id)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := store.AddTable(&models.Table{ID: id, Name: id, CreatedAt: time.Now()}); err != nil {
			return fmt.Errorf("failed to register feed table %s: %w", id, err)
		}
		logger.Info("Registered feed table %s", id)
	}
	return nil
}

// pullFeed stores every result newer than the latest recorded spin of each feed table.
func pullFeed(ctx context.Context, feedClient *feed.Client, store *storage.Storage, tables []string) (int, error) {
	total := 0
	for _, id := range tables {
		since, err := store.LastSpinAt(id)
		if err != nil {
			return total, err
		}
		results, err := feedClient.FetchResults(ctx, id, since)
		if err != nil {
			return total, fmt.Errorf("failed to fetch results for %s: %w", id, err)
		}
		if len(results) == 0 {
			continue
		}
		spins := make([]models.Spin, len(results))
		for i, r := range results {
			spins[i] = models.Spin{TableID: id, Outcome: r.N, RecordedAt: r.Time()}
		}
		if err := store.AppendSpins(spins); err != nil {
			return total, fmt.Errorf("failed to store results for %s: %w", id, err)
		}
		logger.Debug("Stored %d new results for table %s", len(spins), id)
		total += len(spins)
	}
	return total, nil
}

func runMonitoringCycle(
	ctx context.Context,
	feedClient *feed.Client,
	mon *monitor.Monitor,
	store *storage.Storage,
	telegramClient *telegram.Client,
	cfg *config.Config,
) error {
	startTime := time.Now()
	logger.Info("Starting monitoring cycle")

	if feedClient != nil {
		n, err := pullFeed(ctx, feedClient, store, cfg.Feed.Tables)
		if err != nil {
			return err
		}
		logger.Info("Pulled %d new results from the feed", n)
	}

	alerts, err := mon.ProcessTables()
	if err != nil {
		return fmt.Errorf("failed to process tables: %w", err)
	}
	logger.Info("Detected %d alerts", len(alerts))

	toSend := mon.PostProcessAlerts(alerts, cfg.Monitor.PollInterval)

	if len(toSend) > 0 {
		logger.Info("Post-processed alerts: %d tables", len(toSend))

		if telegramClient != nil {
			logger.Debug("Sending top %d alerts to Telegram", len(toSend))
			if err := telegramClient.Send(toSend); err != nil {
				logger.Error("Failed to send Telegram notification: %v", err)
			} else {
				logger.Info("Sent Telegram notification with top %d alerts", len(toSend))
				mon.RecordNotified(toSend)
			}
		} else {
			for _, a := range toSend {
				logger.With(map[string]interface{}{
					"table": a.TableID,
					"score": a.Score,
					"label": a.Label,
					"flags": a.Flags,
				}).Warn("Unusual table behaviour")
			}
			mon.RecordNotified(toSend)
		}
	} else {
		logger.Info("No alerts above quality bar this cycle")
	}

	logger.Info("Monitoring cycle completed in %v", time.Since(startTime))
	return nil
}
