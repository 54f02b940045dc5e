package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch, extract and embed every bookmark",
	Long: `Read the bookmark list, fetch each page, embed its text and write the
enriched records and embeddings to the data directory. Interrupting the run
leaves the previous output untouched.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := globalEngine.Enrich(ctx)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d bookmarks, %d enriched (%d embedded), %d skipped in %s\n",
		report.RunID, report.Total, report.Enriched, report.Embedded, report.Skipped, report.Duration.Round(time.Millisecond))
	return nil
}
