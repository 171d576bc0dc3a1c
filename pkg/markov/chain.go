package markov

import (
	"fmt"
	"iter"
	"strconv"
)

// Chain maps fixed-length windows of tokens ("states") to the
// ProbabilityMap of tokens seen following them. The window length is
// the chain's order, fixed at construction: every state key has
// exactly that many tokens.
//
// Tokens are interned to integer ids and states are stored under
// space-joined id keys, so any comparable token type works as long as
// element-wise equality is what the caller means by state equality.
//
// A Chain is safe for concurrent reads (iteration, Get, Draw) once
// building is done; Learn, Update and SetState need single-writer
// access.
type Chain[T comparable] struct {
	order  int
	vocab  map[T]int
	tokens []T // id -> token
	states map[string]*stateEntry[T]
	keys   []string // insertion-ordered state keys, for random starts
}

type stateEntry[T comparable] struct {
	state      []T
	successors *ProbabilityMap[T]
}

// New returns an empty chain of the given order. The order must be a
// positive integer.
func New[T comparable](order int) (*Chain[T], error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: order must be a positive integer, got %d", ErrChainOrder, order)
	}
	return &Chain[T]{
		order:  order,
		vocab:  make(map[T]int),
		states: make(map[string]*stateEntry[T]),
	}, nil
}

// FromCorpus builds a chain of the given order and learns corpus into
// it in one step.
func FromCorpus[T comparable](corpus []T, order int) (*Chain[T], error) {
	c, err := New[T](order)
	if err != nil {
		return nil, err
	}
	if err := c.Learn(corpus); err != nil {
		return nil, err
	}
	return c, nil
}

// Order returns the fixed state-window length of the chain.
func (c *Chain[T]) Order() int { return c.order }

// Len returns the number of states in the chain.
func (c *Chain[T]) Len() int { return len(c.keys) }

// internKey encodes state as a space-joined id key, interning tokens
// that have not been seen before.
func (c *Chain[T]) internKey(state []T) string {
	var buf []byte
	for i, tok := range state {
		id, ok := c.vocab[tok]
		if !ok {
			id = len(c.tokens)
			c.vocab[tok] = id
			c.tokens = append(c.tokens, tok)
		}
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf)
}

// lookupKey encodes state without interning. ok is false when a token
// has never been seen, which means the state cannot be a key.
func (c *Chain[T]) lookupKey(state []T) (string, bool) {
	var buf []byte
	for i, tok := range state {
		id, ok := c.vocab[tok]
		if !ok {
			return "", false
		}
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf), true
}

// entryFor returns the entry for state, creating it if new. The state
// slice is copied; callers may reuse their buffer.
func (c *Chain[T]) entryFor(state []T) *stateEntry[T] {
	key := c.internKey(state)
	e, ok := c.states[key]
	if !ok {
		e = &stateEntry[T]{
			state:      append([]T(nil), state...),
			successors: NewProbabilityMap[T](),
		}
		c.states[key] = e
		c.keys = append(c.keys, key)
	}
	return e
}

// Learn records every transition in corpus: for each contiguous window
// of order tokens, the weight of the token following it is incremented
// by one. Repeated calls accumulate; nothing is reset.
//
// A corpus shorter than order+1 tokens cannot produce a single
// transition and is rejected with ErrCorpus before anything is
// recorded.
func (c *Chain[T]) Learn(corpus []T) error {
	if len(corpus) < c.order+1 {
		return fmt.Errorf("%w: need at least %d tokens, got %d", ErrCorpus, c.order+1, len(corpus))
	}
	for i := 0; i+c.order < len(corpus); i++ {
		c.entryFor(corpus[i : i+c.order]).successors.Add(corpus[i+c.order])
	}
	return nil
}

// Update merges other's states into c, combining weights additively
// for overlapping (state, token) pairs. Both chains must have the same
// order; a mismatch is rejected with ErrChainOrder before anything is
// merged. other is not modified and stays independent of c.
func (c *Chain[T]) Update(other *Chain[T]) error {
	if other.order != c.order {
		return fmt.Errorf("%w: cannot merge order %d into order %d", ErrChainOrder, other.order, c.order)
	}
	for _, key := range other.keys {
		src := other.states[key]
		c.entryFor(src.state).successors.merge(src.successors)
	}
	return nil
}

// SetState attaches successors directly to state, replacing whatever
// was recorded before. The state must have exactly order tokens; a nil
// map attaches an empty one, making the state a dead end.
func (c *Chain[T]) SetState(state []T, successors *ProbabilityMap[T]) error {
	if len(state) != c.order {
		return fmt.Errorf("%w: state has %d tokens, chain order is %d", ErrCorpus, len(state), c.order)
	}
	if successors == nil {
		successors = NewProbabilityMap[T]()
	}
	c.entryFor(state).successors = successors
	return nil
}

// Contains reports whether state is a key of the chain.
func (c *Chain[T]) Contains(state []T) bool {
	if len(state) != c.order {
		return false
	}
	key, ok := c.lookupKey(state)
	if !ok {
		return false
	}
	_, ok = c.states[key]
	return ok
}

// Get returns the ProbabilityMap recorded for state. Unlike the
// iterator's lenient start handling, this is a strict lookup: a state
// that is not a key fails with ErrStateNotFound.
func (c *Chain[T]) Get(state []T) (*ProbabilityMap[T], error) {
	if len(state) == c.order {
		if key, ok := c.lookupKey(state); ok {
			if e, ok := c.states[key]; ok {
				return e.successors, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrStateNotFound, state)
}

// States yields the chain's state keys in insertion order. The yielded
// slices are copies.
func (c *Chain[T]) States() iter.Seq[[]T] {
	return func(yield func([]T) bool) {
		for _, key := range c.keys {
			if !yield(append([]T(nil), c.states[key].state...)) {
				return
			}
		}
	}
}

// randomState picks uniformly among the chain's states. It returns nil
// when the chain is empty.
func (c *Chain[T]) randomState(r Rand) []T {
	if len(c.keys) == 0 {
		return nil
	}
	key := c.keys[r.IntN(len(c.keys))]
	return append([]T(nil), c.states[key].state...)
}
