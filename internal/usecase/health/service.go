package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all configured components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one component check failed.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// IndexStatus is a snapshot of the ingested corpus.
type IndexStatus struct {
	Ready     bool
	Chunks    int
	Documents int
}

// Report aggregates the index snapshot and component check results. An
// empty index keeps Status healthy; only failing checks degrade it.
type Report struct {
	Status Status
	Index  IndexStatus
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index     Index
	embedding EmbeddingChecker
	redis     RedisPinger
}

// New creates a Service over the clause index.
func New(index Index) *Service {
	return &Service{index: index}
}

// WithEmbedding enables the embedding provider check.
func (s *Service) WithEmbedding(e EmbeddingChecker) *Service {
	s.embedding = e
	return s
}

// WithRedis enables the query log redis check.
func (s *Service) WithRedis(p RedisPinger) *Service {
	s.redis = p
	return s
}

// Check reports the index snapshot and runs the configured component checks.
func (s *Service) Check(ctx context.Context) Report {
	chunks := s.index.Count()
	documents := len(s.index.Sources())

	checks := make(map[string]CheckResult)

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			checks["querylog"] = CheckError
		} else {
			checks["querylog"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{
		Status: status,
		Index: IndexStatus{
			Ready:     chunks > 0,
			Chunks:    chunks,
			Documents: documents,
		},
		Checks: checks,
	}
}
