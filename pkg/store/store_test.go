package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"markovchains/pkg/markov"
)

// setupTestStore creates a fresh on-disk SQLite database and a Store.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(wal)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Setup(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testChain(t *testing.T, corpus string, order int) *markov.Chain[string] {
	t.Helper()
	chain, err := markov.FromCorpus(strings.Split(corpus, " "), order)
	if err != nil {
		t.Fatalf("FromCorpus() error = %v", err)
	}
	return chain
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chain := testChain(t, "the cat sat on the mat the cat ran", 2)

	info, err := s.Save(ctx, "cats", chain)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if info.ID == "" || info.Order != 2 {
		t.Errorf("Save() info = %+v, want non-empty id and order 2", info)
	}

	loaded, err := s.Load(ctx, "cats")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Order() != chain.Order() || loaded.Len() != chain.Len() {
		t.Fatalf("loaded chain order/len = %d/%d, want %d/%d",
			loaded.Order(), loaded.Len(), chain.Order(), chain.Len())
	}

	for state := range chain.States() {
		want, err := chain.Get(state)
		if err != nil {
			t.Fatal(err)
		}
		got, err := loaded.Get(state)
		if err != nil {
			t.Fatalf("loaded chain is missing state %v: %v", state, err)
		}
		for token, weight := range want.All() {
			if got.Weight(token) != weight {
				t.Errorf("weight of %q after %v = %v, want %v", token, state, got.Weight(token), weight)
			}
		}
	}
}

func TestSaveMergesWeights(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chain := testChain(t, "a b c", 1)

	if _, err := s.Save(ctx, "merge", chain); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if _, err := s.Save(ctx, "merge", chain); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "merge")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	pm, err := loaded.Get([]string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	if pm.Weight("b") != 2 {
		t.Errorf("merged weight of b = %v, want 2", pm.Weight("b"))
	}
}

func TestSaveOrderConflict(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "conflict", testChain(t, "a b c d", 2)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	_, err := s.Save(ctx, "conflict", testChain(t, "a b c d", 3))
	if !errors.Is(err, markov.ErrChainOrder) {
		t.Errorf("Save() with mismatched order error = %v, want markov.ErrChainOrder", err)
	}
}

func TestLoadMissing(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load() error = %v, want ErrModelNotFound", err)
	}
}

func TestModelsAndDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "one", testChain(t, "a b c", 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, "two", testChain(t, "a b c d", 2)); err != nil {
		t.Fatal(err)
	}

	models, err := s.Models(ctx)
	if err != nil {
		t.Fatalf("Models() error = %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("Models() returned %d models, want 2", len(models))
	}
	if models[0].Name != "one" || models[1].Name != "two" {
		t.Errorf("Models() = %v, want names one, two", models)
	}

	if err := s.Delete(ctx, "one"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Load(ctx, "one"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load() after Delete() error = %v, want ErrModelNotFound", err)
	}
	if _, err := s.Load(ctx, "two"); err != nil {
		t.Errorf("Load() of surviving model error = %v", err)
	}

	if err := s.Delete(ctx, "one"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Delete() of missing model error = %v, want ErrModelNotFound", err)
	}
}

func TestStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Order-1 chain over "a b a c": states a (b:1, c:1) and b (a:1).
	if _, err := s.Save(ctx, "stats", testChain(t, "a b a c", 1)); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx, "stats")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.States != 2 || stats.Links != 3 || stats.TotalWeight != 3 {
		t.Errorf("Stats() = %+v, want 2 states, 3 links, total weight 3", stats)
	}
}

func TestExportImport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chain := testChain(t, "the cat sat on the mat the cat ran", 2)

	if _, err := s.Save(ctx, "cats", chain); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.Export(ctx, "cats", &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if err := s.Delete(ctx, "cats"); err != nil {
		t.Fatal(err)
	}

	info, err := s.Import(ctx, &buf)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if info.Name != "cats" {
		t.Errorf("Import() info.Name = %q, want cats", info.Name)
	}

	loaded, err := s.Load(ctx, "cats")
	if err != nil {
		t.Fatalf("Load() after Import() error = %v", err)
	}
	pm, err := loaded.Get([]string{"the", "cat"})
	if err != nil {
		t.Fatal(err)
	}
	if pm.Weight("sat") != 1 || pm.Weight("ran") != 1 {
		t.Errorf("imported weights sat=%v ran=%v, want 1 and 1", pm.Weight("sat"), pm.Weight("ran"))
	}
}

func TestExportFile(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "file", testChain(t, "a b c", 1)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := s.ExportFile(ctx, "file", path); err != nil {
		t.Fatalf("ExportFile() error = %v", err)
	}

	// Re-import from the written file.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if _, err := s.Import(ctx, bytes.NewReader(data)); err != nil {
		t.Fatalf("Import() of exported file error = %v", err)
	}
}
