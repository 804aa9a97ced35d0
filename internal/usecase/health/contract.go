package health

import "context"

// Index reports what has been ingested so far.
type Index interface {
	Count() int
	Sources() []string
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// RedisPinger checks the redis instance backing the query log and the
// embedding cache.
type RedisPinger interface {
	Ping(ctx context.Context) error
}
