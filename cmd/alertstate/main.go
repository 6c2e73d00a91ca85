// Command alertstate inspects or resets the persisted daily alert budget.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/poggufanz/polymarket-sniper/internal/alertstate"
	"github.com/poggufanz/polymarket-sniper/internal/domain"
)

func main() {
	stateFile := flag.String("state-file", "data/alert_state.json", "Path to the alert state JSON file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides --state-file)")
	reset := flag.Bool("reset", false, "Reset today's alert budget to zero")

	flag.Parse()

	logger := log.New(os.Stderr, "[alertstate] ", log.LstdFlags)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	store, cleanup, err := openStore(ctx, *stateFile, *postgresDSN, logger)
	if err != nil {
		logger.Fatalf("Open store: %v", err)
	}
	defer cleanup()

	if *reset {
		fresh := domain.DailyAlertState{Date: domain.DateKey(time.Now())}
		if err := store.Save(ctx, fresh); err != nil {
			logger.Fatalf("Reset state: %v", err)
		}
		fmt.Printf("Alert state reset for %s\n", fresh.Date)
		return
	}

	state, err := store.Load(ctx)
	if err != nil {
		logger.Fatalf("Load state: %v", err)
	}

	if state.Date == "" {
		fmt.Println("No alert state recorded")
		return
	}

	fmt.Printf("Date:        %s\n", state.Date)
	fmt.Printf("Alerts sent: %d\n", state.AlertsSent)
	for _, rec := range state.TokensAlerted {
		fmt.Printf("  %s  %-10s %s\n", rec.Timestamp.Format(time.RFC3339), rec.Symbol, rec.Mint)
	}
}

func openStore(ctx context.Context, stateFile, postgresDSN string, logger *log.Logger) (alertstate.Store, func(), error) {
	if postgresDSN == "" {
		return alertstate.NewFileStore(stateFile, logger), func() {}, nil
	}

	pool, err := alertstate.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	store := alertstate.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}
