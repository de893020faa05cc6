package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current scope as CSV",
	Long: `Write the items visible in the current scope as UTF-8 CSV with a
byte-order marker, one header row, and one row per item. Cell values
are escaped against spreadsheet formula injection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		items, err := a.store.List(cmd.Context(), a.scope())
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := export.WriteCSV(out, items); err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Fprintf(os.Stderr, "exported %d item(s) to %s\n", len(items), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
