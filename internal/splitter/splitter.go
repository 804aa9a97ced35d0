// Package splitter cuts contract text into overlapping retrieval chunks.
package splitter

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
	"github.com/clauseinsight/clauseinsight/internal/loader"
)

// Separator preference order: heading marks, paragraph breaks, lines,
// sentence ends, words.
var contractSeparators = []string{"\n## ", "\n# ", "\n\n", "\n", ". ", " ", ""}

// Splitter produces fixed-size overlapping chunks from page text.
// Splitting is pure: the same input always yields the same chunks.
type Splitter struct {
	rc textsplitter.RecursiveCharacter
}

// New creates a splitter with the given chunk geometry, measured in runes.
func New(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		rc: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(contractSeparators),
		),
	}
}

// SplitText splits raw text without attaching chunk identity.
func (s *Splitter) SplitText(text string) ([]string, error) {
	return s.rc.SplitText(text)
}

// SplitPages splits every page of one document and assigns document-wide
// ordinals in page order, so chunk IDs are stable for identical input.
func (s *Splitter) SplitPages(source string, pages []loader.Page) ([]chunk.Chunk, error) {
	var chunks []chunk.Chunk
	ordinal := 0

	for _, page := range pages {
		parts, err := s.rc.SplitText(page.Text)
		if err != nil {
			return nil, fmt.Errorf("split page %d of %q: %w", page.Number, source, err)
		}

		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			c, err := chunk.New(source, page.Number, ordinal, part)
			if err != nil {
				return nil, fmt.Errorf("chunk page %d of %q: %w", page.Number, source, err)
			}

			chunks = append(chunks, c)
			ordinal++
		}
	}

	return chunks, nil
}
