package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultUserID marks entries logged without user attribution.
const DefaultUserID = "default_user"

// Query-log entry types.
const (
	QueryTypeQuery    = "query"
	QueryTypeAnalysis = "analysis"
)

// QueryLogMetadata is the compact, filterable slice of a logged response.
type QueryLogMetadata struct {
	ClauseTitle    string  `json:"clause_title"`
	Confidence     int     `json:"confidence"`
	RelevanceScore float64 `json:"relevance_score"`
}

// QueryLogEntry is one best-effort query/response record. Response holds the
// full answer payload of either entry type.
type QueryLogEntry struct {
	ID        uuid.UUID        `json:"id"`
	UserID    string           `json:"user_id"`
	Query     string           `json:"query"`
	Response  any              `json:"response"`
	QueryType string           `json:"query_type"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  QueryLogMetadata `json:"metadata"`
}

// NewQueryLogEntry builds a log entry from a completed query.
func NewQueryLogEntry(query string, resp StructuredResponse) QueryLogEntry {
	return newLogEntry(query, resp, QueryTypeQuery, QueryLogMetadata{
		ClauseTitle:    resp.Clause.Title,
		Confidence:     resp.Explanation.Confidence,
		RelevanceScore: float64(resp.Relevance.Score) / 100,
	})
}

// NewAnalysisLogEntry builds a log entry from a completed clause analysis.
func NewAnalysisLogEntry(clauseText string, resp ClauseAnalysis) QueryLogEntry {
	return newLogEntry(clauseText, resp, QueryTypeAnalysis, QueryLogMetadata{
		ClauseTitle: resp.Clause.Title,
		Confidence:  resp.Metadata.Confidence,
	})
}

func newLogEntry(query string, resp any, queryType string, meta QueryLogMetadata) QueryLogEntry {
	return QueryLogEntry{
		ID:        uuid.New(),
		UserID:    DefaultUserID,
		Query:     query,
		Response:  resp,
		QueryType: queryType,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	}
}
