// Package batch reports per-document outcomes of bulk ingestion.
package batch

// ItemStatus is the processing outcome of a single document.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of ingesting one document in a batch operation.
type Result struct {
	source string
	chunks int
	status ItemStatus
	err    error
}

// NewOK creates a successful ingestion result.
func NewOK(source string, chunks int) Result {
	return Result{source: source, chunks: chunks, status: StatusOK}
}

// NewError creates a failed ingestion result.
func NewError(source string, err error) Result {
	return Result{source: source, status: StatusError, err: err}
}

// Source returns the document filename.
func (r Result) Source() string { return r.source }

// Chunks returns the number of chunks indexed for the document.
func (r Result) Chunks() int { return r.chunks }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary aggregates a batch of ingestion results.
type Summary struct {
	Documents int
	Chunks    int
	Failed    int
}

// Summarize folds results into totals. Failed documents contribute no chunks.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Documents++
		if r.Status() == StatusError {
			s.Failed++
			continue
		}
		s.Chunks += r.Chunks()
	}
	return s
}
