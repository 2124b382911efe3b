package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tomasstrnad1997/minesbot/db/store"
)

//go:embed sqlc/schema.sql
var ddl string

type SQLStore struct {
	Q  store.Queries
	DB *sql.DB
}

// GameRecord is the outcome of one finished game.
type GameRecord struct {
	ID         int64
	Height     int
	Width      int
	Mines      int
	Outcome    string
	Moves      int
	Guesses    int
	MinesFound int
	Seed       int64
	PlayedAt   time.Time
}

func InitializeTables(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

func (store *SQLStore) InitializeTables() error {
	return InitializeTables(store.DB)
}

// Open opens the sqlite database at path.
func Open(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Need to ping the database to check if the file could be opened
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{Q: *store.New(db), DB: db}, nil
}

// InitStore opens the database named by DB_PATH.
func InitStore() (*SQLStore, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		return nil, fmt.Errorf("DB_PATH not set in environment")
	}
	return Open(path)
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) RecordGame(ctx context.Context, record GameRecord) (int64, error) {
	params := store.InsertGameParams{
		Height:     int64(record.Height),
		Width:      int64(record.Width),
		Mines:      int64(record.Mines),
		Outcome:    record.Outcome,
		Moves:      int64(record.Moves),
		Guesses:    int64(record.Guesses),
		MinesFound: int64(record.MinesFound),
		Seed:       record.Seed,
	}
	id, err := s.Q.InsertGame(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("record game: %w", err)
	}
	return id, nil
}

// ListGames returns the most recent games first.
func (s *SQLStore) ListGames(ctx context.Context, limit int) ([]GameRecord, error) {
	games, err := s.Q.ListGames(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	records := make([]GameRecord, len(games))
	for i, g := range games {
		records[i] = GameRecord{
			ID:         g.ID,
			Height:     int(g.Height),
			Width:      int(g.Width),
			Mines:      int(g.Mines),
			Outcome:    g.Outcome,
			Moves:      int(g.Moves),
			Guesses:    int(g.Guesses),
			MinesFound: int(g.MinesFound),
			Seed:       g.Seed,
			PlayedAt:   g.PlayedAt,
		}
	}
	return records, nil
}

// OutcomeCounts returns the number of recorded games per outcome.
func (s *SQLStore) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.Q.CountOutcomes(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = int(row.Games)
	}
	return counts, nil
}
