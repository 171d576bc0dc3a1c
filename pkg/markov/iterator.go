package markov

import (
	"context"
	"fmt"
	"io"
	"iter"
)

// IterOption configures an Iterator at construction.
type IterOption[T comparable] func(*iterConfig[T])

type iterConfig[T comparable] struct {
	start     []T
	rand      Rand
	maxTokens int
}

// WithStart requests a starting state for the walk. When more tokens
// than the chain's order are given, only the trailing order tokens are
// used. A start that is too short, or that is not a key of the chain,
// is silently discarded in favor of a random state: this is a
// convenience entry point, not a data-integrity boundary. Use
// Chain.Get for strict lookups.
func WithStart[T comparable](tokens ...T) IterOption[T] {
	return func(cfg *iterConfig[T]) { cfg.start = tokens }
}

// WithRand sets the randomness source for both the random start and
// every draw. The default is the process-wide math/rand/v2 source.
func WithRand[T comparable](r Rand) IterOption[T] {
	return func(cfg *iterConfig[T]) { cfg.rand = r }
}

// WithMaxTokens caps how many tokens the iterator will produce. Once
// the cap is reached Next returns io.EOF. Zero or negative means no
// cap: the walk is infinite in principle and ends only at a dead end.
func WithMaxTokens[T comparable](n int) IterOption[T] {
	return func(cfg *iterConfig[T]) { cfg.maxTokens = n }
}

// Iterator performs a stateful random walk over a Chain. It references
// the chain without ever mutating it, so any number of iterators may
// walk the same chain concurrently. A walk is not restartable; start a
// new one with Chain.Iterate.
type Iterator[T comparable] struct {
	chain     *Chain[T]
	rand      Rand
	state     []T
	produced  int
	maxTokens int
	exhausted bool
}

// Iterate returns a new walker over the chain. With no options the
// walk begins at a uniformly random existing state and runs until it
// dead-ends.
func (c *Chain[T]) Iterate(opts ...IterOption[T]) *Iterator[T] {
	cfg := &iterConfig[T]{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.rand == nil {
		cfg.rand = defaultRand{}
	}

	it := &Iterator[T]{chain: c, rand: cfg.rand, maxTokens: cfg.maxTokens}

	start := cfg.start
	if len(start) > c.order {
		start = start[len(start)-c.order:]
	}
	if len(start) == c.order && c.Contains(start) {
		it.state = append([]T(nil), start...)
	} else {
		it.state = c.randomState(cfg.rand)
	}
	if it.state == nil {
		// Empty chain: the first Next reports a dead end.
		it.exhausted = true
	}
	return it
}

// State returns a copy of the walker's current state window.
func (it *Iterator[T]) State() []T {
	return append([]T(nil), it.state...)
}

// Next draws a successor of the current state, slides the state window
// forward by one token, and returns the drawn token.
//
// It returns ErrDisjointChain when the current state has no successors
// (the state is absent from the chain or its map is empty); the dead
// end is final and every later call fails the same way. The chain
// itself is unaffected: a fresh iterator from another start may still
// succeed. With WithMaxTokens set, reaching the cap returns io.EOF.
func (it *Iterator[T]) Next() (T, error) {
	var zero T
	if it.exhausted {
		return zero, fmt.Errorf("%w: iterator exhausted", ErrDisjointChain)
	}
	if it.maxTokens > 0 && it.produced >= it.maxTokens {
		return zero, io.EOF
	}
	successors, err := it.chain.Get(it.state)
	if err != nil {
		it.exhausted = true
		return zero, fmt.Errorf("%w: state %v", ErrDisjointChain, it.state)
	}
	token, err := successors.Draw(it.rand)
	if err != nil {
		it.exhausted = true
		return zero, fmt.Errorf("%w: state %v", ErrDisjointChain, it.state)
	}
	it.state = append(it.state[1:], token)
	it.produced++
	return token, nil
}

// Tokens returns the walk as a lazy sequence. The sequence ends at a
// dead end or at the configured token cap; call Next directly when the
// distinction between the two matters.
func (it *Iterator[T]) Tokens() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			token, err := it.Next()
			if err != nil || !yield(token) {
				return
			}
		}
	}
}

// Stream runs the walk in a goroutine and delivers tokens over the
// returned channel. The channel is closed when the walk ends or ctx is
// cancelled.
func (it *Iterator[T]) Stream(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			token, err := it.Next()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- token:
			}
		}
	}()
	return out
}
