package markov

import "errors"

// The package reports failures as wrapped sentinel errors; callers
// match on the kind with errors.Is.
var (
	// ErrCorpus indicates a corpus or state key that is structurally
	// unusable for the chain's order: a corpus too short to produce a
	// single transition, or a directly inserted state of the wrong
	// length.
	ErrCorpus = errors.New("corpus unusable for chain order")

	// ErrChainOrder indicates an order mismatch: merging chains of
	// differing orders, or constructing a chain with a non-positive
	// order.
	ErrChainOrder = errors.New("chain order mismatch")

	// ErrWeight indicates a weight that is not a usable number:
	// NaN, an infinity, or a negative value.
	ErrWeight = errors.New("weight must be a non-negative finite number")

	// ErrNoSuccessors is returned by ProbabilityMap.Draw when the map
	// has no entries or its total weight is zero.
	ErrNoSuccessors = errors.New("probability map has no successors")

	// ErrDisjointChain is returned by Iterator.Next when the walk hits
	// a dead end: the current state is absent from the chain or has an
	// empty ProbabilityMap. It names the condition so callers can tell
	// a structurally broken chain from an ordinary stop.
	ErrDisjointChain = errors.New("disjoint chain: no successors for current state")

	// ErrStateNotFound is returned by Chain.Get when the requested
	// state is not a key of the chain.
	ErrStateNotFound = errors.New("state not present in chain")
)
