package tokenize

import (
	"slices"
	"strings"
	"testing"
)

func TestWordsTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "words_and_punctuation",
			input: "The cat sat, then ran!",
			want:  []string{"The", "cat", "sat", ",", "then", "ran", "!"},
		},
		{
			name:  "multiline",
			input: "one fish\ntwo fish",
			want:  []string{"one", "fish", "two", "fish"},
		},
		{
			name:  "contractions",
			input: "don't stop",
			want:  []string{"don't", "stop"},
		},
		{
			name:  "empty",
			input: "",
			want:  nil,
		},
	}

	w := NewWords()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := w.Tokens(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Tokens() error = %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestWordsJoin(t *testing.T) {
	w := NewWords()
	got := w.Join([]string{"the", "cat", "sat", ",", "then", "ran", "!"})
	want := "the cat sat, then ran!"
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}

func TestWordsOptions(t *testing.T) {
	w := NewWords(WithSeparator("_"), WithSplitRegex(`\S+`))
	got, err := w.Tokens(strings.NewReader("a b. c"))
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if !slices.Equal(got, []string{"a", "b.", "c"}) {
		t.Errorf("Tokens() = %v, want [a b. c]", got)
	}
	if joined := w.Join(got); joined != "a_b._c" {
		t.Errorf("Join() = %q, want a_b._c", joined)
	}
}

func TestRunes(t *testing.T) {
	got, err := Runes{}.Tokens(strings.NewReader("héllo"))
	if err != nil {
		t.Fatalf("Tokens() error = %v", err)
	}
	if !slices.Equal(got, []string{"h", "é", "l", "l", "o"}) {
		t.Errorf("Tokens() = %v", got)
	}
	if joined := (Runes{}).Join(got); joined != "héllo" {
		t.Errorf("Join() = %q, want héllo", joined)
	}
}
