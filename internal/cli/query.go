package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	queryuc "github.com/clauseinsight/clauseinsight/internal/usecase/query"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question about the indexed contracts",
	Long: `Query embeds the question, retrieves the most relevant contract clause
and prints the generated explanation.

Examples:
  clausectl query -q "how can the agreement be terminated"
  clausectl query -q "limitation of liability" -k 5 --json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to ask (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of candidate clauses (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	q, err := domain.NewQuery(queryText, queryTopK)
	if err != nil {
		return err
	}

	store, err := connectStore()
	if err != nil {
		color.Red("Redis unavailable, continuing without query log: %v", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	index, err := openIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	svc := queryuc.New(newEmbedder(store), index, newGenerator()).
		WithTopK(cfg.Retrieval.DefaultTopK, cfg.Retrieval.MaxTopK).
		WithContextChunks(cfg.Retrieval.ContextChunks).
		WithMinRelevance(cfg.Retrieval.MinRelevance).
		WithQueryLog(newQueryLog(store)).
		WithLogger(logger)

	ctx, usage := domain.NewContextWithUsage(cmd.Context())

	resp, err := svc.Query(ctx, q)
	if err != nil {
		return err
	}

	if queryJSON {
		out, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	printResponse(resp)
	fmt.Printf("\nTokens: %d embedding, %d generation\n",
		usage.EmbeddingTokens, usage.GenerationTokens)

	return nil
}

func printResponse(resp domain.StructuredResponse) {
	bold := color.New(color.Bold)

	bold.Printf("%s", resp.Clause.Title)
	fmt.Printf("  (%s)\n", resp.Clause.Section)
	fmt.Printf("relevance %d%%, confidence %d%% (%s)\n\n",
		resp.Relevance.Score, resp.Explanation.Confidence, resp.Explanation.ConfidenceReason)

	fmt.Println(truncate(resp.Clause.Content, 500))
	fmt.Println()

	bold.Println("Summary")
	fmt.Printf("%s\n\n", resp.Explanation.Summary)

	bold.Println("Meaning")
	fmt.Printf("%s\n", resp.Explanation.Meaning)

	if len(resp.Explanation.Risks) > 0 {
		fmt.Println()
		bold.Println("Risks")
		for _, r := range resp.Explanation.Risks {
			fmt.Printf("  - %s\n", r)
		}
	}

	if resp.Explanation.PracticalImpact != "" {
		fmt.Println()
		bold.Println("Practical impact")
		fmt.Printf("%s\n", resp.Explanation.PracticalImpact)
	}

	fmt.Println()
	fmt.Printf("Favored party: %s\n", resp.Explanation.FavoredParty)
	if len(resp.Explanation.KeyTerms) > 0 {
		fmt.Printf("Key terms: %s\n", strings.Join(resp.Explanation.KeyTerms, ", "))
	}
	if len(resp.Relevance.MatchedTerms) > 0 {
		fmt.Printf("Matched terms: %s\n", strings.Join(resp.Relevance.MatchedTerms, ", "))
	}
}
