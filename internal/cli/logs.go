package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clauseinsight/clauseinsight/internal/repository/querylog"
)

var logsLimit int

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent query log entries",
	Long: `Logs prints the most recent query and analysis log entries, newest
first. Requires a configured querylog URL.`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 10, "number of entries")
}

func runLogs(cmd *cobra.Command, args []string) error {
	if !cfg.QueryLog.Enabled() {
		return fmt.Errorf("query logging is not configured (set querylog.url)")
	}

	store, err := connectStore()
	if err != nil {
		return err
	}
	defer store.Close()

	repo := querylog.New(store, int64(cfg.QueryLog.MaxEntries),
		time.Duration(cfg.QueryLog.TimeoutMS)*time.Millisecond, logger)

	entries, err := repo.Recent(cmd.Context(), int64(logsLimit))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No query log entries.")
		return nil
	}

	bold := color.New(color.Bold)
	for _, e := range entries {
		bold.Printf("%s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.QueryType)
		fmt.Printf("  %s\n", truncate(e.Query, 160))
		if e.Metadata.ClauseTitle != "" {
			fmt.Printf("  clause: %s, confidence %d%%\n", e.Metadata.ClauseTitle, e.Metadata.Confidence)
		}
		fmt.Println()
	}

	return nil
}
