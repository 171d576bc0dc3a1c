package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"

	"markovchains/pkg/markov"
)

var (
	genName   string
	genTokens int
	genStart  string
	genChars  bool
	genSeed   uint64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Walk a model and print the generated text",
	Long: "Loads a saved model and performs a weighted random walk over it. " +
		"The walk begins at a random state unless --start names a known one, " +
		"and stops at --tokens tokens or when the chain dead-ends.",
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer func() { _ = db.Close() }()
		defer s.Close()

		chain, err := s.Load(cmd.Context(), genName)
		if err != nil {
			exitErr("load model", err)
		}

		tok := tokenizerFor(genChars)
		opts := []markov.IterOption[string]{markov.WithMaxTokens[string](genTokens)}
		if genStart != "" {
			start, err := tok.Tokens(strings.NewReader(genStart))
			if err != nil {
				exitErr("tokenize start", err)
			}
			opts = append(opts, markov.WithStart(start...))
		}
		if genSeed != 0 {
			opts = append(opts, markov.WithRand[string](rand.New(rand.NewPCG(genSeed, 0))))
		}

		it := chain.Iterate(opts...)
		out := it.State()
		for token := range it.Tokens() {
			out = append(out, token)
		}
		fmt.Println(tok.Join(out))
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genName, "name", "n", "default", "Model name")
	generateCmd.Flags().IntVarP(&genTokens, "tokens", "t", 100, "Maximum number of tokens to generate")
	generateCmd.Flags().StringVar(&genStart, "start", "", "Starting state; falls back to a random state when unknown")
	generateCmd.Flags().BoolVar(&genChars, "chars", false, "Join output per character instead of per word")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 0, "Random seed for reproducible walks (0 uses real randomness)")
	rootCmd.AddCommand(generateCmd)
}
