/*
Package store persists markov chains in a SQLite database so that
trained models survive the process that built them. Tokens are interned
into a shared vocabulary, states into a prefix table of space-joined
token ids, and each model's transitions into a weighted link table.
Saving under an existing name merges additively, mirroring
markov.Chain.Update.

The package works on *sql.DB and leaves driver selection to the
binary; both mattn/go-sqlite3 and modernc.org/sqlite are known to work.
*/
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"markovchains/pkg/markov"
)

// ErrModelNotFound indicates that no saved model has the requested name.
var ErrModelNotFound = errors.New("model not found")

// ModelInfo identifies a saved model.
type ModelInfo struct {
	ID    string
	Name  string
	Order int
}

// ModelStats summarizes a saved model's size.
type ModelStats struct {
	States      int     // distinct state keys
	Links       int     // distinct (state, successor) pairs
	TotalWeight float64 // sum of all link weights
}

// Setup creates the store's tables if they do not exist. It is
// idempotent and should be called once before opening a Store on a
// new database.
func Setup(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS markov_models (
    model_id TEXT PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS markov_vocabulary (
    token_id INTEGER PRIMARY KEY,
    token_text TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS markov_prefixes (
    prefix_id INTEGER PRIMARY KEY,
    prefix_text TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS markov_links (
    model_id TEXT NOT NULL,
    prefix_id INTEGER NOT NULL,
    next_token_id INTEGER NOT NULL,
    weight REAL NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, prefix_id, next_token_id)
);
`
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schema); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}
	return tx.Commit()
}

// Store reads and writes chains in a SQLite database. Create one with
// New and release it with Close.
type Store struct {
	db                    *sql.DB
	logger                *slog.Logger
	stmtGetModel          *sql.Stmt
	stmtGetModels         *sql.Stmt
	stmtAddModel          *sql.Stmt
	stmtModelStats        *sql.Stmt
	stmtInsertVocab       *sql.Stmt
	stmtGetOrInsertPrefix *sql.Stmt
}

// New prepares a Store on db. The schema must already exist (see
// Setup).
func New(db *sql.DB) (*Store, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order FROM markov_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetModels, err := db.Prepare(`SELECT model_id, model_name, model_order FROM markov_models ORDER BY model_name;`)
	if err != nil {
		return nil, err
	}

	stmtAddModel, err := db.Prepare(`INSERT INTO markov_models (model_id, model_name, model_order) VALUES (?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtModelStats, err := db.Prepare(`SELECT COUNT(DISTINCT prefix_id), COUNT(*), COALESCE(SUM(weight), 0) FROM markov_links WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtInsertVocab, err := db.Prepare(`INSERT INTO markov_vocabulary (token_text) VALUES (?) ON CONFLICT(token_text) DO UPDATE SET token_text=excluded.token_text RETURNING token_id;`)
	if err != nil {
		return nil, err
	}

	stmtGetOrInsertPrefix, err := db.Prepare(`INSERT INTO markov_prefixes (prefix_text) VALUES (?) ON CONFLICT(prefix_text) DO UPDATE SET prefix_text=excluded.prefix_text RETURNING prefix_id;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                    db,
		logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		stmtGetModel:          stmtGetModel,
		stmtGetModels:         stmtGetModels,
		stmtAddModel:          stmtAddModel,
		stmtModelStats:        stmtModelStats,
		stmtInsertVocab:       stmtInsertVocab,
		stmtGetOrInsertPrefix: stmtGetOrInsertPrefix,
	}, nil
}

// Close releases the prepared statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetModel.Close()
	_ = s.stmtGetModels.Close()
	_ = s.stmtAddModel.Close()
	_ = s.stmtModelStats.Close()
	_ = s.stmtInsertVocab.Close()
	_ = s.stmtGetOrInsertPrefix.Close()
}

// SetLogger sets the logger for the Store. By default all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetModel returns the info for a saved model by name.
func (s *Store) GetModel(ctx context.Context, name string) (ModelInfo, error) {
	info := ModelInfo{Name: name}
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&info.ID, &info.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("%w: %q", ErrModelNotFound, name)
	}
	if err != nil {
		return ModelInfo{}, err
	}
	return info, nil
}

// Models lists all saved models.
func (s *Store) Models(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var models []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err = rows.Scan(&info.ID, &info.Name, &info.Order); err != nil {
			return nil, err
		}
		models = append(models, info)
	}
	return models, rows.Err()
}

// Stats returns size statistics for a saved model.
func (s *Store) Stats(ctx context.Context, name string) (ModelStats, error) {
	info, err := s.GetModel(ctx, name)
	if err != nil {
		return ModelStats{}, err
	}
	var stats ModelStats
	err = s.stmtModelStats.QueryRowContext(ctx, info.ID).Scan(&stats.States, &stats.Links, &stats.TotalWeight)
	if err != nil {
		return ModelStats{}, err
	}
	return stats, nil
}

// Save writes chain to the database under name, creating the model if
// it is new. Saving into an existing model merges weights additively
// and requires matching orders; a mismatch fails with
// markov.ErrChainOrder and leaves the database untouched. The whole
// save is one transaction.
func (s *Store) Save(ctx context.Context, name string, chain *markov.Chain[string]) (ModelInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	info := ModelInfo{Name: name}
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, name).Scan(&info.ID, &info.Order)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		info.ID = ulid.Make().String()
		info.Order = chain.Order()
		if _, err = tx.StmtContext(ctx, s.stmtAddModel).ExecContext(ctx, info.ID, name, info.Order); err != nil {
			return ModelInfo{}, fmt.Errorf("failed to insert model %q: %w", name, err)
		}
	case err != nil:
		return ModelInfo{}, fmt.Errorf("failed to query model %q: %w", name, err)
	case info.Order != chain.Order():
		return ModelInfo{}, fmt.Errorf("%w: model %q has order %d, chain has order %d",
			markov.ErrChainOrder, name, info.Order, chain.Order())
	}

	stmtInsertVocab := tx.StmtContext(ctx, s.stmtInsertVocab)
	stmtGetOrInsertPrefix := tx.StmtContext(ctx, s.stmtGetOrInsertPrefix)

	stmtUpsertLink, err := tx.PrepareContext(ctx, `
		INSERT INTO markov_links (model_id, prefix_id, next_token_id, weight) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, prefix_id, next_token_id) DO UPDATE SET weight = weight + excluded.weight;
	`)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to prepare link upsert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtUpsertLink)

	tokenIDs := make(map[string]int)
	tokenID := func(token string) (int, error) {
		if id, ok := tokenIDs[token]; ok {
			return id, nil
		}
		var id int
		if err := stmtInsertVocab.QueryRowContext(ctx, token).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to intern token %q: %w", token, err)
		}
		tokenIDs[token] = id
		return id, nil
	}

	var states, links int
	var keyBuf []byte
	for state := range chain.States() {
		keyBuf = keyBuf[:0]
		for i, token := range state {
			id, err := tokenID(token)
			if err != nil {
				return ModelInfo{}, err
			}
			if i > 0 {
				keyBuf = append(keyBuf, ' ')
			}
			keyBuf = strconv.AppendInt(keyBuf, int64(id), 10)
		}

		var prefixID int
		if err := stmtGetOrInsertPrefix.QueryRowContext(ctx, string(keyBuf)).Scan(&prefixID); err != nil {
			return ModelInfo{}, fmt.Errorf("failed to intern prefix %q: %w", keyBuf, err)
		}

		successors, err := chain.Get(state)
		if err != nil {
			return ModelInfo{}, err
		}
		for token, weight := range successors.All() {
			id, err := tokenID(token)
			if err != nil {
				return ModelInfo{}, err
			}
			if _, err := stmtUpsertLink.ExecContext(ctx, info.ID, prefixID, id, weight); err != nil {
				return ModelInfo{}, fmt.Errorf("failed to upsert link (%d -> %d): %w", prefixID, id, err)
			}
			links++
		}
		states++
	}

	if err = tx.Commit(); err != nil {
		return ModelInfo{}, err
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.String("model_id", info.ID),
		slog.Int("states_written", states),
		slog.Int("links_written", links),
	)

	return info, nil
}

// Load rebuilds a chain from the database by model name.
func (s *Store) Load(ctx context.Context, name string) (*markov.Chain[string], error) {
	info, err := s.GetModel(ctx, name)
	if err != nil {
		return nil, err
	}

	vocab, err := s.loadVocabulary(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.prefix_text, l.next_token_id, l.weight
		FROM markov_links l JOIN markov_prefixes p ON p.prefix_id = l.prefix_id
		WHERE l.model_id = ?
		ORDER BY l.prefix_id;
	`, info.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links for %q: %w", name, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	chain, err := markov.New[string](info.Order)
	if err != nil {
		return nil, err
	}

	maps := make(map[string]*markov.ProbabilityMap[string])
	var states, links int
	for rows.Next() {
		var prefixText string
		var nextID int
		var weight float64
		if err = rows.Scan(&prefixText, &nextID, &weight); err != nil {
			return nil, err
		}

		pm, ok := maps[prefixText]
		if !ok {
			state, err := s.decodePrefix(prefixText, vocab)
			if err != nil {
				return nil, err
			}
			pm = markov.NewProbabilityMap[string]()
			if err = chain.SetState(state, pm); err != nil {
				return nil, fmt.Errorf("stored prefix %q does not fit order %d: %w", prefixText, info.Order, err)
			}
			maps[prefixText] = pm
			states++
		}

		token, ok := vocab[nextID]
		if !ok {
			return nil, fmt.Errorf("consistency error: token id %d not in vocabulary", nextID)
		}
		if err = pm.Increment(token, weight); err != nil {
			return nil, fmt.Errorf("stored weight for token %q unusable: %w", token, err)
		}
		links++
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Model loaded",
		slog.String("model_name", name),
		slog.String("model_id", info.ID),
		slog.Int("states_loaded", states),
		slog.Int("links_loaded", links),
	)

	return chain, nil
}

// Delete removes a model and all of its links. The shared vocabulary
// and prefix tables are left alone; other models may use them.
func (s *Store) Delete(ctx context.Context, name string) error {
	info, err := s.GetModel(ctx, name)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, `DELETE FROM markov_links WHERE model_id = ?`, info.ID); err != nil {
		return fmt.Errorf("failed to remove links for model %q: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM markov_models WHERE model_id = ?`, info.ID); err != nil {
		return fmt.Errorf("failed to remove model %q: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", name),
		slog.String("model_id", info.ID),
	)
	return nil
}

// loadVocabulary reads the full token table into memory. Model
// databases are small enough that selective loading is not worth the
// query gymnastics.
func (s *Store) loadVocabulary(ctx context.Context) (map[int]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token_id, token_text FROM markov_vocabulary`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	vocab := make(map[int]string)
	for rows.Next() {
		var id int
		var text string
		if err = rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		vocab[id] = text
	}
	return vocab, rows.Err()
}

// decodePrefix turns a space-joined id key back into its tokens.
func (s *Store) decodePrefix(prefixText string, vocab map[int]string) ([]string, error) {
	parts := strings.Split(prefixText, " ")
	state := make([]string, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("malformed prefix %q: %w", prefixText, err)
		}
		token, ok := vocab[id]
		if !ok {
			return nil, fmt.Errorf("consistency error: token id %d in prefix not in vocabulary", id)
		}
		state[i] = token
	}
	return state, nil
}
