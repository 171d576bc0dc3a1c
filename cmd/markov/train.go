package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"markovchains/pkg/markov"
)

var (
	trainName  string
	trainOrder int
	trainChars bool
)

var trainCmd = &cobra.Command{
	Use:   "train [files...]",
	Short: "Train a model from text files or stdin",
	Long: "Tokenizes the given files (or stdin when none are given), learns " +
		"the transitions into a chain of the requested order, and saves the " +
		"result. Training an existing model merges the new weights in.",
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer func() { _ = db.Close() }()
		defer s.Close()

		tok := tokenizerFor(trainChars)
		var corpus []string
		if len(args) == 0 {
			if corpus, err = tok.Tokens(os.Stdin); err != nil {
				exitErr("read stdin", err)
			}
		} else {
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					exitErr("open corpus", err)
				}
				tokens, err := tok.Tokens(f)
				_ = f.Close()
				if err != nil {
					exitErr("tokenize "+path, err)
				}
				corpus = append(corpus, tokens...)
			}
		}

		chain, err := markov.FromCorpus(corpus, trainOrder)
		if err != nil {
			exitErr("build chain", err)
		}

		info, err := s.Save(cmd.Context(), trainName, chain)
		if err != nil {
			exitErr("save model", err)
		}
		fmt.Printf("trained %q: order %d, %d states from %d tokens\n",
			info.Name, info.Order, chain.Len(), len(corpus))
	},
}

func init() {
	trainCmd.Flags().StringVarP(&trainName, "name", "n", "default", "Model name")
	trainCmd.Flags().IntVarP(&trainOrder, "order", "o", 2, "Chain order (state window length)")
	trainCmd.Flags().BoolVar(&trainChars, "chars", false, "Tokenize per character instead of per word")
	rootCmd.AddCommand(trainCmd)
}
