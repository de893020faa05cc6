package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ayane-t/mochimono/internal/model"
	"github.com/ayane-t/mochimono/internal/stats"
)

var (
	statsTitleStyle = lipgloss.NewStyle().Bold(true)
	statsLabelStyle = lipgloss.NewStyle().Faint(true).Width(18)
	statsValueStyle = lipgloss.NewStyle().Bold(true)
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the items visible in the current scope",
	Long: `Compute dashboard statistics over the current scope: quantity-weighted
counts per action and category, the estimated resale value range, and
the estimated disposal cost.

The summary is recomputed from a full repository read on every call,
so it always reconciles with what list shows.`,
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
		summary := stats.Summarize(items)

		fmt.Println(statsTitleStyle.Render("Inventory summary"))
		row("Total items", fmt.Sprintf("%d", summary.TotalItems))

		fmt.Println(statsTitleStyle.Render("By action"))
		for _, action := range model.Actions {
			if n := summary.ItemsByAction[action]; n > 0 {
				row(string(action), fmt.Sprintf("%d", n))
			}
		}

		if len(summary.ItemsByCategory) > 0 {
			fmt.Println(statsTitleStyle.Render("By category"))
			categories := make([]string, 0, len(summary.ItemsByCategory))
			for c := range summary.ItemsByCategory {
				categories = append(categories, c)
			}
			sort.Strings(categories)
			for _, c := range categories {
				row(c, fmt.Sprintf("%d", summary.ItemsByCategory[c]))
			}
		}

		fmt.Println(statsTitleStyle.Render("Estimates"))
		row("Resale value", fmt.Sprintf("¥%d - ¥%d", summary.EstimatedResaleValue.Low, summary.EstimatedResaleValue.High))
		row("Confidence", fmt.Sprintf("%.0f%%", summary.EstimatedResaleValue.AverageConfidence*100))
		row("Disposal cost", fmt.Sprintf("¥%d", summary.EstimatedDisposalCost))
		return nil
	},
}

func row(label, value string) {
	fmt.Println(statsLabelStyle.Render(label) + statsValueStyle.Render(value))
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
