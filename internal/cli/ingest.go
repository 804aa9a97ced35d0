package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/batch"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <pdf|glob>",
	Short: "Index contract PDFs from a file or a glob",
	Long: `Ingest retains each PDF in the contract store, splits it into chunks,
embeds the chunks and writes them to the vector index. Re-ingesting a
filename replaces its previous version. A glob may use ** to cross
directories.

Examples:
  clausectl ingest nda.pdf
  clausectl ingest "contracts/**/*.pdf"`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, skipped, err := resolvePDFs(args[0])
	if err != nil {
		return err
	}
	if skipped > 0 {
		color.Yellow("Skipping %d matched non-PDF files", skipped)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDF files match %q", args[0])
	}

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

	var bar *progressbar.ProgressBar
	var current string
	svc.WithProgress(func(done, total int) {
		if bar == nil {
			bar = newChunkBar(total, current)
		}
		_ = bar.Set(done)
	})

	ctx, usage := domain.NewContextWithUsage(cmd.Context())

	results := make([]batch.Result, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		bar, current = nil, name

		count, err := svc.IngestFile(ctx, path)
		if err != nil {
			results = append(results, batch.NewError(name, err))
			color.Red("✗ %s: %v", name, err)
			continue
		}
		results = append(results, batch.NewOK(name, count))
		color.Green("✓ %s: %d chunks", name, count)
	}

	s := batch.Summarize(results)
	fmt.Printf("\nIngested %d chunks from %d documents", s.Chunks, s.Documents-s.Failed)
	if usage.EmbeddingTokens > 0 {
		fmt.Printf(" (%d embedding tokens)", usage.EmbeddingTokens)
	}
	fmt.Println()

	if s.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", s.Failed, s.Documents)
	}
	return nil
}

// resolvePDFs expands a path or doublestar glob and keeps the .pdf matches.
func resolvePDFs(pattern string) (paths []string, skipped int, err error) {
	var matches []string
	if strings.ContainsAny(pattern, "*?[{") {
		matches, err = doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, 0, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
	} else {
		if _, err := os.Stat(pattern); err != nil {
			return nil, 0, err
		}
		matches = []string{pattern}
	}

	for _, m := range matches {
		if strings.HasSuffix(m, ".pdf") {
			paths = append(paths, m)
		} else {
			skipped++
		}
	}
	sort.Strings(paths)

	return paths, skipped, nil
}
