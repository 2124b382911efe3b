package main

import (
	"context"
	"log"
	"os"

	"github.com/tomasstrnad1997/minesbot/db"
)

// Creates the games table in the sqlite file named by DB_PATH and reports
// how many games it already holds.
func main() {
	store, err := db.InitStore()
	if err != nil {
		log.Fatalf("Failed to open game store: %v", err)
	}
	defer store.Close()
	if err = store.InitializeTables(); err != nil {
		log.Fatalf("Failed to create tables in %s: %v", os.Getenv("DB_PATH"), err)
	}
	counts, err := store.OutcomeCounts(context.Background())
	if err != nil {
		log.Fatalf("Failed to read recorded games: %v", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	log.Printf("Games table ready in %s (%d games recorded)", os.Getenv("DB_PATH"), total)
}
