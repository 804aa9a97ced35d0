// Package chunk holds the chunk aggregate: the unit of embedding and retrieval.
package chunk

import "fmt"

// MaxTextSize is the maximum chunk text size in bytes. The splitter produces
// far smaller chunks; this guards against unsplit text reaching the index.
const MaxTextSize = 16384 // 16KB

// Chunk is a bounded span of contract text (immutable value object).
// Created at ingestion, owned by the index once embedded.
type Chunk struct {
	source  string
	page    int
	ordinal int
	text    string
}

// New validates and creates a Chunk.
// Source is the retained PDF filename; page is 1-based; ordinal is the
// position of the chunk within its document, in split order.
func New(source string, page, ordinal int, text string) (Chunk, error) {
	if source == "" {
		return Chunk{}, fmt.Errorf("chunk source is required")
	}
	if page < 1 {
		return Chunk{}, fmt.Errorf("chunk page must be positive, got %d", page)
	}
	if ordinal < 0 {
		return Chunk{}, fmt.Errorf("chunk ordinal must not be negative, got %d", ordinal)
	}
	if text == "" {
		return Chunk{}, fmt.Errorf("chunk text is required")
	}
	if len(text) > MaxTextSize {
		return Chunk{}, fmt.Errorf("chunk text too large (max %d bytes)", MaxTextSize)
	}

	return Chunk{source: source, page: page, ordinal: ordinal, text: text}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(source string, page, ordinal int, text string) Chunk {
	return Chunk{source: source, page: page, ordinal: ordinal, text: text}
}

// ID returns the chunk identifier, unique within the index.
func (c Chunk) ID() string { return fmt.Sprintf("%s#%d#%d", c.source, c.page, c.ordinal) }

// Source returns the source document filename.
func (c Chunk) Source() string { return c.source }

// Page returns the 1-based page the chunk was extracted from.
func (c Chunk) Page() int { return c.page }

// Ordinal returns the chunk position within its document.
func (c Chunk) Ordinal() int { return c.ordinal }

// Text returns the chunk text.
func (c Chunk) Text() string { return c.text }
