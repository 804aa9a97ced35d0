// Package cli implements the clausectl command line tool: offline contract
// ingestion, local queries, index rebuilds and query-log inspection, driven
// by the same configuration the API server loads.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/config"
	logpkg "github.com/clauseinsight/clauseinsight/internal/logger"
)

var (
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clausectl",
	Short: "ClauseInsight contract index management",
	Long: `clausectl manages a local ClauseInsight contract index: it ingests
contract PDFs, asks questions against the index, rebuilds the index from the
retained documents and inspects the query log.

Example usage:
  clausectl ingest nda.pdf                  # Index one contract
  clausectl ingest "contracts/**/*.pdf"     # Index a directory tree
  clausectl query -q "termination notice"   # Ask about the indexed contracts
  clausectl reindex                         # Rebuild the index from retained PDFs`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if cfgPath != "" {
			cfg, err = config.LoadFile(cfgPath)
		} else {
			cfg, err = config.Load(config.GetEnv())
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Component logs stay out of the way unless asked for.
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err = logpkg.New(config.GetEnv(), level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default is config/<ENV>.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
