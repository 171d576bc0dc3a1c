// Command markov trains, stores and walks order-N Markov chain models
// backed by a SQLite database.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"markovchains/pkg/store"
	"markovchains/pkg/tokenize"
)

var (
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "markov",
	Short: "Train and walk Markov chain models",
	Long: "Builds order-N Markov chains from text corpora, keeps them in a " +
		"SQLite database, and generates new text by walking them.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "./markov.db", "Path to the model database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the database, ensures the schema exists, and returns
// a ready Store. The caller closes both.
func openStore() (*sql.DB, *store.Store, error) {
	db, err := initDB(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Setup(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("set up schema: %w", err)
	}
	s, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	s.SetLogger(newLogger())
	return db, s, nil
}

func tokenizerFor(chars bool) tokenize.Tokenizer {
	if chars {
		return tokenize.Runes{}
	}
	return tokenize.NewWords()
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
