package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/batch"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the index from the retained contracts",
	Long: `Reindex clears the vector index and re-ingests every contract PDF
retained in the store. Run it after changing the chunking or embedding
configuration.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, args []string) error {
	store, err := connectStore()
	if err != nil {
		color.Red("Redis unavailable, continuing without embedding cache: %v", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	svc, index, err := newIngestService(store)
	if err != nil {
		return err
	}
	defer index.Close()

	spinner := newSpinner("Reindexing")
	svc.WithProgress(func(done, total int) { _ = spinner.Add(1) })

	ctx, usage := domain.NewContextWithUsage(cmd.Context())

	results, err := svc.Reindex(ctx)
	_ = spinner.Finish()
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No retained contracts to index.")
		return nil
	}

	for _, res := range results {
		if res.Status() == batch.StatusError {
			color.Red("✗ %s: %v", res.Source(), res.Err())
			continue
		}
		color.Green("✓ %s: %d chunks", res.Source(), res.Chunks())
	}

	s := batch.Summarize(results)
	fmt.Printf("\nReindexed %d chunks from %d documents", s.Chunks, s.Documents-s.Failed)
	if usage.EmbeddingTokens > 0 {
		fmt.Printf(" (%d embedding tokens)", usage.EmbeddingTokens)
	}
	fmt.Println()

	if s.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", s.Failed, s.Documents)
	}
	return nil
}
