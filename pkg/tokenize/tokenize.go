/*
Package tokenize turns raw text into token sequences for chain
building, and joins generated tokens back into text. Splitting policy
lives entirely here: the chain core only ever sees opaque tokens.
*/
package tokenize

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// Tokenizer splits a stream of text into tokens and joins tokens back
// into presentable text.
type Tokenizer interface {
	// Tokens reads r to EOF and returns the token sequence.
	Tokens(r io.Reader) ([]string, error)
	// Join renders a token sequence as text.
	Join(tokens []string) string
}

// Words splits text into words and punctuation using regular
// expressions. Punctuation tokens are not preceded by a separator when
// joining, so "the cat ." renders as "the cat.".
type Words struct {
	separator  string
	splitRegex *regexp.Regexp
	noSepRegex *regexp.Regexp
}

// Option configures a Words tokenizer.
type Option func(*Words)

// WithSeparator sets the string used to join tokens. Default: " ".
func WithSeparator(sep string) Option {
	return func(w *Words) { w.separator = sep }
}

// WithSplitRegex sets the pattern used to extract tokens from input
// text. Default: `[\w']+|[.,!?;]`.
func WithSplitRegex(expr string) Option {
	return func(w *Words) { w.splitRegex = regexp.MustCompile(expr) }
}

// WithNoSeparatorRegex sets the pattern for tokens that are joined
// without a preceding separator. Default: `^[.,!?;]`.
func WithNoSeparatorRegex(expr string) Option {
	return func(w *Words) { w.noSepRegex = regexp.MustCompile(expr) }
}

// NewWords returns a word tokenizer with default settings, overridden
// by any options given.
func NewWords(opts ...Option) *Words {
	w := &Words{
		separator: " ",
		// Sequences of word characters, or single punctuation marks.
		splitRegex: regexp.MustCompile(`[\w']+|[.,!?;]`),
		noSepRegex: regexp.MustCompile(`^[.,!?;]`),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tokens reads r line by line and extracts tokens with the split
// pattern.
func (w *Words) Tokens(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var tokens []string
	for scanner.Scan() {
		tokens = append(tokens, w.splitRegex.FindAllString(scanner.Text(), -1)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Join renders tokens with the configured separator, omitting it
// before punctuation.
func (w *Words) Join(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !w.noSepRegex.MatchString(tok) {
			b.WriteString(w.separator)
		}
		b.WriteString(tok)
	}
	return b.String()
}

// Runes treats every rune as a token, for character-level chains.
type Runes struct{}

// Tokens reads r to EOF and returns one token per rune.
func (Runes) Tokens(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	runes := []rune(string(data))
	tokens := make([]string, len(runes))
	for i, c := range runes {
		tokens[i] = string(c)
	}
	return tokens, nil
}

// Join concatenates tokens with no separator.
func (Runes) Join(tokens []string) string {
	return strings.Join(tokens, "")
}
