package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search enriched bookmarks by meaning",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from config)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := globalEngine.LoadIndex(); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	results, err := globalEngine.Search(cmd.Context(), query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matching bookmarks found.")
		return nil
	}
	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.Site
		}
		fmt.Fprintf(out, "%2d. %.4f  %s\n    %s\n", i+1, r.Similarity, title, r.Site)
	}
	return nil
}
