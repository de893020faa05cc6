package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/analysis"
)

var analyzeDryRun bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image-file>",
	Short: "Classify a photograph and add the item",
	Long: `Send a photograph to the remote analysis service, which identifies
the item, estimates resale prices, and recommends a disposal action.
The resulting record is stored in the repository with the photograph
attached.

Requires analysis.api_key (or MOCHIMONO_ANALYSIS_API_KEY) to be set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		image, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		mediaType := mime.TypeByExtension(filepath.Ext(args[0]))
		if mediaType == "" {
			mediaType = "image/jpeg"
		}

		analyzer, err := analysis.NewAnthropic(analysis.AnthropicConfig{
			APIKey: a.cfg.Analysis.APIKey,
			Model:  a.cfg.Analysis.Model,
			Logger: a.logger,
		})
		if err != nil {
			return err
		}

		result, err := analyzer.AnalyzeImage(cmd.Context(), image, mediaType, analysis.Options{
			PrecisionMode:    a.cfg.Analysis.PrecisionMode,
			EnrichedSearch:   a.cfg.Analysis.EnrichedSearch,
			MunicipalityCode: a.cfg.Analysis.MunicipalityCode,
		})
		if err != nil {
			return err
		}

		item := result.ToItem()
		if analyzeDryRun {
			printItem(item)
			return nil
		}

		id, err := a.store.Add(cmd.Context(), a.scope(), item)
		if err != nil {
			return err
		}
		if err := a.store.SetImages(cmd.Context(), id, image, nil); err != nil {
			return err
		}

		fmt.Println(id)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "show the classification without storing it")
	rootCmd.AddCommand(analyzeCmd)
}
