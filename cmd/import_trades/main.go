package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/crypto_momentum_bot/internal/domain"
	"github.com/vitos/crypto_momentum_bot/internal/infrastructure/storage"
)

// Imports historical trades from a JSON file into the trade archive so
// lifetime stats survive across sessions. Input is an array of closed
// trades in the same shape the API serves:
//
//	[{"symbol":"BTCUSDT","entry_price":50000,"exit_price":51000,
//	  "quantity":0.01,"realized_pl":10,"realized_pl_percent":2,
//	  "closed_at":"2025-01-11T16:53:00Z"}]
func main() {
	dbPath := flag.String("db", "bot.db", "path to the sqlite database")
	input := flag.String("input", "trades.json", "path to the trades JSON file")
	flag.Parse()

	raw, err := os.ReadFile(*input)
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", *input, err)
		os.Exit(1)
	}

	var trades []*domain.ClosedTrade
	if err := json.Unmarshal(raw, &trades); err != nil {
		fmt.Printf("Failed to parse %s: %v\n", *input, err)
		os.Exit(1)
	}
	if len(trades) == 0 {
		fmt.Println("No trades found in input file, nothing to import.")
		return
	}

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	var wins, losses int
	var totalPL float64
	for _, t := range trades {
		if err := store.SaveTrade(ctx, t); err != nil {
			fmt.Printf("Failed to save trade %s @ %s: %v\n", t.Symbol, t.ClosedAt, err)
			os.Exit(1)
		}
		if t.RealizedPL > 0 {
			wins++
		} else {
			losses++
		}
		totalPL += t.RealizedPL
	}

	winRate := float64(wins) / float64(len(trades)) * 100

	fmt.Printf("Imported %d trades into %s\n", len(trades), *dbPath)
	fmt.Printf("Wins: %d\n", wins)
	fmt.Printf("Losses: %d\n", losses)
	fmt.Printf("Win Rate: %.1f%%\n", winRate)
	fmt.Printf("Total P/L: $%.2f\n", totalPL)
}
