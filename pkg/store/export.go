package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/natefinch/atomic"

	"markovchains/pkg/markov"
)

// ExportedModel is the JSON representation of a saved model, used for
// backups and for moving models between databases. Tokens are written
// as text; ids are a storage detail and do not appear.
type ExportedModel struct {
	Name   string          `json:"name"`
	Order  int             `json:"order"`
	States []ExportedState `json:"states"`
}

// ExportedState is one state key and its successor weights.
type ExportedState struct {
	State      []string           `json:"state"`
	Successors map[string]float64 `json:"successors"`
}

// Export writes the named model as indented JSON to w.
func (s *Store) Export(ctx context.Context, name string, w io.Writer) error {
	chain, err := s.Load(ctx, name)
	if err != nil {
		return err
	}

	exported := ExportedModel{Name: name, Order: chain.Order()}
	for state := range chain.States() {
		successors, err := chain.Get(state)
		if err != nil {
			return err
		}
		es := ExportedState{State: state, Successors: make(map[string]float64, successors.Len())}
		for token, weight := range successors.All() {
			es.Successors[token] = weight
		}
		exported.States = append(exported.States, es)
	}

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", name),
		slog.Int("states_exported", len(exported.States)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ExportFile exports the named model to path. The file is replaced
// atomically, so a crash mid-write never leaves a truncated export.
func (s *Store) ExportFile(ctx context.Context, name, path string) error {
	var buf bytes.Buffer
	if err := s.Export(ctx, name, &buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// Import reads a JSON model from r and merges it into the database
// under its exported name, creating the model if it does not exist.
// Weights for overlapping (state, token) pairs are added, matching
// Save's merge semantics.
func (s *Store) Import(ctx context.Context, r io.Reader) (ModelInfo, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return ModelInfo{}, fmt.Errorf("failed to decode json model: %w", err)
	}

	chain, err := markov.New[string](imported.Order)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("imported model %q: %w", imported.Name, err)
	}
	for _, es := range imported.States {
		pm := markov.NewProbabilityMap[string]()
		for token, weight := range es.Successors {
			if err := pm.Increment(token, weight); err != nil {
				return ModelInfo{}, fmt.Errorf("imported weight for token %q unusable: %w", token, err)
			}
		}
		if err := chain.SetState(es.State, pm); err != nil {
			return ModelInfo{}, fmt.Errorf("imported state %v does not fit order %d: %w", es.State, imported.Order, err)
		}
	}

	info, err := s.Save(ctx, imported.Name, chain)
	if err != nil {
		return ModelInfo{}, err
	}

	s.logger.InfoContext(ctx, "Model imported",
		slog.String("model_name", imported.Name),
		slog.String("model_id", info.ID),
		slog.Int("states_merged", len(imported.States)),
	)
	return info, nil
}
