package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/clauseinsight/clauseinsight/internal/db"
	dbRedis "github.com/clauseinsight/clauseinsight/internal/db/redis"
	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/loader"
	"github.com/clauseinsight/clauseinsight/internal/repository/clauseindex"
	"github.com/clauseinsight/clauseinsight/internal/repository/contracts"
	"github.com/clauseinsight/clauseinsight/internal/repository/embcache"
	"github.com/clauseinsight/clauseinsight/internal/repository/querylog"
	"github.com/clauseinsight/clauseinsight/internal/splitter"
	openaiTransport "github.com/clauseinsight/clauseinsight/internal/transport/openai"
	embeddinguc "github.com/clauseinsight/clauseinsight/internal/usecase/embedding"
	ingestuc "github.com/clauseinsight/clauseinsight/internal/usecase/ingest"
	queryuc "github.com/clauseinsight/clauseinsight/internal/usecase/query"
)

const providerName = "openai"

// connectStore dials redis when a querylog URL is configured. Returns nil
// without error when it is not; ingest and query degrade gracefully, logs
// refuses to run.
func connectStore() (db.Store, error) {
	if !cfg.QueryLog.Enabled() {
		return nil, nil
	}

	store, err := dbRedis.NewStoreFromURL(cfg.QueryLog.URL, cfg.QueryLog.Password)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return store, nil
}

// newEmbedder assembles the same embedder chain the server runs: OpenAI
// client, optional redis cache, logging instrumentation.
func newEmbedder(store db.Store) *embeddinguc.InstrumentedEmbedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   providerName,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if store != nil && cfg.Embedding.CacheEnabled {
		embedder = embcache.New(base, store, cfg.Embedding.Model, 0, nil, logger)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, providerName, cfg.Embedding.Model, logger)
}

// newGenerator creates the LLM client from the loaded config.
func newGenerator() *openaiTransport.Generator {
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Provider:          providerName,
		Timeout:           time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		MaxContextChars:   cfg.LLM.MaxContextChars,
		Temperature:       cfg.LLM.Temperature,
		MaxTokens:         cfg.LLM.MaxTokens,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Logger:            logger,
	})
}

// openIndex opens the bbolt clause index, creating the data dir if needed so
// a fresh checkout fails with "index empty" instead of a missing-file error.
func openIndex() (*clauseindex.Repo, error) {
	path := cfg.Storage.IndexPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	index, err := clauseindex.New(path, logger)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return index, nil
}

// newIngestService builds the full ingestion pipeline. The returned index
// must be closed by the caller.
func newIngestService(store db.Store) (*ingestuc.Service, *clauseindex.Repo, error) {
	files, err := contracts.New(cfg.Storage.ContractsDir())
	if err != nil {
		return nil, nil, err
	}

	index, err := openIndex()
	if err != nil {
		return nil, nil, err
	}

	svc := ingestuc.New(
		files,
		loader.New(),
		splitter.New(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap),
		newEmbedder(store),
		index,
	).WithBatchSize(cfg.Embedding.BatchSize)

	return svc, index, nil
}

// newQueryLog returns the redis-backed query log, or a no-op without redis.
func newQueryLog(store db.Store) queryuc.QueryLog {
	if store == nil {
		return querylog.Noop{}
	}
	return querylog.New(store, int64(cfg.QueryLog.MaxEntries),
		time.Duration(cfg.QueryLog.TimeoutMS)*time.Millisecond, logger)
}

// newChunkBar renders embedding progress for one document.
func newChunkBar(total int, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.CyanString("Embedding %s", name)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
}

// newSpinner renders indeterminate progress.
func newSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
	)
}

// truncate cuts display text at n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
