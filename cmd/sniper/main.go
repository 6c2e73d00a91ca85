package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/alertstate"
	"github.com/poggufanz/polymarket-sniper/internal/config"
	"github.com/poggufanz/polymarket-sniper/internal/domain"
	"github.com/poggufanz/polymarket-sniper/internal/ingest"
	"github.com/poggufanz/polymarket-sniper/internal/marketdata"
	"github.com/poggufanz/polymarket-sniper/internal/narrative"
	"github.com/poggufanz/polymarket-sniper/internal/notify"
	"github.com/poggufanz/polymarket-sniper/internal/observability"
	"github.com/poggufanz/polymarket-sniper/internal/pipeline"
	"github.com/poggufanz/polymarket-sniper/internal/polymarket"
	"github.com/poggufanz/polymarket-sniper/internal/ratelimit"
	"github.com/poggufanz/polymarket-sniper/internal/relevance"
	"github.com/poggufanz/polymarket-sniper/internal/scheduler"
	"github.com/poggufanz/polymarket-sniper/internal/scoring"
	"github.com/poggufanz/polymarket-sniper/internal/security"
	"github.com/poggufanz/polymarket-sniper/internal/solana"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	dryRun := flag.Bool("dry-run", false, "Log alerts instead of sending to Telegram")
	verbose := flag.Bool("verbose", false, "Include file:line in log output")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config)")

	flag.Parse()

	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		logger.SetFlags(log.LstdFlags | log.Lshortfile)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, logger, cfg)

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	limits := ratelimit.NewRegistry(cfg.RateLimits)

	// Narrative index, primed once before ingestion starts so the first
	// candidates are not matched against an empty set.
	gamma := polymarket.NewClient()
	index := narrative.NewIndex(narrative.IndexOptions{
		Events:      gamma,
		VolumeFloor: cfg.Narrative.VolumeFloorUSD,
		Logger:      logger,
	})

	refresh := func(parent context.Context) {
		jobCtx, jobCancel := context.WithTimeout(parent, 30*time.Second)
		defer jobCancel()
		if err := limits.Acquire(jobCtx, ratelimit.ServiceNarrative); err != nil {
			return
		}
		if err := index.Refresh(jobCtx); err != nil {
			logger.Printf("Narrative refresh failed: %v", err)
		}
	}
	refresh(ctx)
	if index.Active().Len() == 0 {
		logger.Println("Warning: no active narratives, candidates will not match until refresh succeeds")
	}

	sched := scheduler.New(logger)
	if err := sched.Add(cfg.Narrative.RefreshSpec, "narrative-refresh", func() { refresh(ctx) }); err != nil {
		return fmt.Errorf("schedule narrative refresh: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Validation tier clients.
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint())
	market := marketdata.NewClient()
	checker := security.NewChecker(security.CheckerOptions{
		Audit:             security.NewRugCheckClient(),
		RPC:               rpc,
		Limits:            limits,
		MaxTop10HolderPct: cfg.Thresholds.MaxTop10HolderPct,
		Logger:            logger,
	})
	analyzer := relevance.NewGeminiAnalyzer(cfg.Gemini.APIKey, relevance.WithModel(cfg.Gemini.Model))

	engine, err := scoring.NewEngine(cfg.Weights)
	if err != nil {
		return fmt.Errorf("create scoring engine: %w", err)
	}

	// Alert state, file-backed by default.
	var store alertstate.Store = alertstate.NewFileStore(cfg.Alerts.StateFile, logger)
	if cfg.Alerts.PostgresDSN != "" {
		pool, err := alertstate.NewPool(ctx, cfg.Alerts.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		pg := alertstate.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store = pg
	}
	alerts := alertstate.NewManager(alertstate.ManagerOptions{
		Store:        store,
		MaxAlertsDay: cfg.Alerts.MaxPerDay,
		Logger:       logger,
	})

	var notifier notify.Notifier
	if cfg.DryRun {
		logger.Println("Dry run: alerts will be logged, not sent")
		notifier = notify.NewLogNotifier(logger)
	} else {
		notifier, err = notify.NewTelegramNotifier(notify.TelegramOptions{
			Token:  cfg.Telegram.BotToken,
			ChatID: cfg.Telegram.ChatID,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
	}

	pipe := pipeline.New(pipeline.Options{
		Market:   market,
		Security: checker,
		Analyzer: analyzer,
		Engine:   engine,
		Alerts:   alerts,
		Notifier: notifier,
		Limits:   limits,
		Config: pipeline.Config{
			MinLiquidityUSD:     cfg.Thresholds.MinLiquidityUSD,
			MaxPriceChange1hPct: cfg.Thresholds.MaxPriceChange1hPct,
			MaxTokenAgeHours:    cfg.Thresholds.MaxTokenAgeHours,
			MinCompositeScore:   cfg.Thresholds.MinCompositeScore,
			MinIndividualScore:  cfg.Thresholds.MinIndividualScore,
		},
		Logger: logger,
	})

	// One websocket subscription per launch platform. Helius deduplicates
	// subscriptions to the same program on one connection, so each source
	// gets its own client.
	wsURL := cfg.WSEndpoint()
	raydiumStream := solana.NewStreamClient(wsURL,
		solana.LogsFilter{Mentions: []string{ingest.RaydiumAMMV4}},
		solana.WithStreamLogger(logger),
		solana.WithStreamName(string(domain.SourceRaydium)))
	pumpStream := solana.NewStreamClient(wsURL,
		solana.LogsFilter{Mentions: []string{ingest.PumpFun}},
		solana.WithStreamLogger(logger),
		solana.WithStreamName(string(domain.SourcePumpFun)))

	manager := ingest.NewManager(ingest.ManagerOptions{
		Sources: []ingest.SourceConfig{
			{Source: domain.SourceRaydium, Stream: raydiumStream, Parser: ingest.NewRaydiumParser()},
			{Source: domain.SourcePumpFun, Stream: pumpStream, Parser: ingest.NewPumpFunParser()},
		},
		Narratives: index,
		Pipeline:   pipe,
		Logger:     logger,
	})

	logger.Printf("Starting launch monitoring (narratives=%d, dry_run=%v)", index.Active().Len(), cfg.DryRun)
	return manager.Run(ctx)
}
