package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [name] [file]",
	Short: "Export a model as JSON",
	Long:  "Writes the named model as JSON to the given file (atomically) or to stdout.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer func() { _ = db.Close() }()
		defer s.Close()

		if len(args) == 2 {
			if err := s.ExportFile(cmd.Context(), args[0], args[1]); err != nil {
				exitErr("export model", err)
			}
			return
		}
		if err := s.Export(cmd.Context(), args[0], os.Stdout); err != nil {
			exitErr("export model", err)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a JSON model export",
	Long:  "Reads a JSON export from the given file (or stdin) and merges it into the database under its exported name.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		db, s, err := openStore()
		if err != nil {
			exitErr("open store", err)
		}
		defer func() { _ = db.Close() }()
		defer s.Close()

		in := os.Stdin
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				exitErr("open export", err)
			}
			defer func() { _ = f.Close() }()
			in = f
		}

		info, err := s.Import(cmd.Context(), in)
		if err != nil {
			exitErr("import model", err)
		}
		fmt.Printf("imported %q (order %d)\n", info.Name, info.Order)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
