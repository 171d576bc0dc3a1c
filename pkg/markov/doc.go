/*
Package markov builds and walks order-N Markov chains over arbitrary
comparable tokens: words, runes, or any other discrete symbol.

A Chain learns transition weights from a corpus, mapping every
fixed-length window of tokens (a "state") to a ProbabilityMap of the
tokens seen following it. An Iterator then performs the random walk,
drawing successors proportionally to their weights and sliding the
state window forward until the chain dead-ends or the caller stops.

The package does no I/O: producing the corpus and presenting the
generated tokens are the caller's concern. See pkg/tokenize and
pkg/store for the text and persistence collaborators.
*/
package markov
