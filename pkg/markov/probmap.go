package markov

import (
	"fmt"
	"iter"
	"math"
)

// ProbabilityMap records a weight per successor token and draws one
// token with probability proportional to its weight. Entries keep
// insertion order for inspection; the order has no effect on sampling.
//
// Create one with NewProbabilityMap; the zero value is not usable.
type ProbabilityMap[T comparable] struct {
	index   map[T]int
	tokens  []T
	weights []float64
	total   float64
}

// NewProbabilityMap returns an empty map. An empty map is a valid
// terminal state: it just has nothing to draw.
func NewProbabilityMap[T comparable]() *ProbabilityMap[T] {
	return &ProbabilityMap[T]{index: make(map[T]int)}
}

// checkWeight rejects the weights float64 can express but the map
// cannot use: NaN, infinities and negative values.
func checkWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return fmt.Errorf("%w: %v", ErrWeight, w)
	}
	return nil
}

// Add records one more occurrence of token.
func (p *ProbabilityMap[T]) Add(token T) {
	_ = p.Increment(token, 1)
}

// Increment adds amount to the stored weight for token, creating the
// entry with weight amount if it is absent. The amount is validated
// here, at insertion time, not at sampling time.
func (p *ProbabilityMap[T]) Increment(token T, amount float64) error {
	if err := checkWeight(amount); err != nil {
		return err
	}
	if i, ok := p.index[token]; ok {
		p.weights[i] += amount
		p.total += amount
		return nil
	}
	p.index[token] = len(p.tokens)
	p.tokens = append(p.tokens, token)
	p.weights = append(p.weights, amount)
	p.total += amount
	return nil
}

// Set stores weight for token directly, replacing any prior weight.
func (p *ProbabilityMap[T]) Set(token T, weight float64) error {
	if err := checkWeight(weight); err != nil {
		return err
	}
	if i, ok := p.index[token]; ok {
		p.total += weight - p.weights[i]
		p.weights[i] = weight
		return nil
	}
	p.index[token] = len(p.tokens)
	p.tokens = append(p.tokens, token)
	p.weights = append(p.weights, weight)
	p.total += weight
	return nil
}

// Draw selects one token with probability weight/Total using r, or the
// process-wide source when r is nil. It returns ErrNoSuccessors when
// the map is empty or its total weight is zero. Drawing consumes
// entropy but never mutates the map.
func (p *ProbabilityMap[T]) Draw(r Rand) (T, error) {
	var zero T
	if p == nil || len(p.tokens) == 0 || p.total <= 0 {
		return zero, ErrNoSuccessors
	}
	if r == nil {
		r = defaultRand{}
	}
	pick := r.Float64() * p.total
	for i, w := range p.weights {
		pick -= w
		if pick < 0 {
			return p.tokens[i], nil
		}
	}
	// Float64 is in [0, 1), but accumulated rounding can walk pick
	// past the last entry.
	return p.tokens[len(p.tokens)-1], nil
}

// Len returns the number of distinct tokens in the map.
func (p *ProbabilityMap[T]) Len() int { return len(p.tokens) }

// Total returns the sum of all weights.
func (p *ProbabilityMap[T]) Total() float64 { return p.total }

// Weight returns the stored weight for token, or 0 when absent.
func (p *ProbabilityMap[T]) Weight(token T) float64 {
	if i, ok := p.index[token]; ok {
		return p.weights[i]
	}
	return 0
}

// All yields (token, weight) pairs in insertion order.
func (p *ProbabilityMap[T]) All() iter.Seq2[T, float64] {
	return func(yield func(T, float64) bool) {
		for i, tok := range p.tokens {
			if !yield(tok, p.weights[i]) {
				return
			}
		}
	}
}

// merge folds other into p, combining weights additively.
func (p *ProbabilityMap[T]) merge(other *ProbabilityMap[T]) {
	for i, tok := range other.tokens {
		// Weights already in a map passed validation.
		_ = p.Increment(tok, other.weights[i])
	}
}
