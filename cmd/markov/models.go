package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List saved models",
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer func() { _ = db.Close() }()
		defer s.Close()

		models, err := s.Models(cmd.Context())
		if err != nil {
			exitErr("list models", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tORDER\tSTATES\tLINKS\tWEIGHT")
		for _, info := range models {
			stats, err := s.Stats(cmd.Context(), info.Name)
			if err != nil {
				exitErr("stats for "+info.Name, err)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%g\n",
				info.Name, info.Order, stats.States, stats.Links, stats.TotalWeight)
		}
		_ = w.Flush()
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm [name]",
	Short: "Delete a saved model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer func() { _ = db.Close() }()
		defer s.Close()

		if err := s.Delete(cmd.Context(), args[0]); err != nil {
			exitErr("delete model", err)
		}
		fmt.Printf("deleted %q\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(rmCmd)
}
