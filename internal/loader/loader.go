// Package loader extracts plain text from contract PDF files.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/clauseinsight/clauseinsight/internal/domain"
)

// Page is the extracted text of a single PDF page.
type Page struct {
	Number int
	Text   string
}

// PDFLoader reads PDF files page by page.
type PDFLoader struct{}

// New creates a PDF loader.
func New() *PDFLoader {
	return &PDFLoader{}
}

// ExtractPages returns the non-empty pages of the PDF at path, in page order.
// Pages whose content stream cannot be decoded are skipped; a document where
// no page yields text is reported as domain.ErrUnreadablePDF.
func (l *PDFLoader) ExtractPages(path string) (pages []Page, err error) {
	name := filepath.Base(path)

	// The parser panics on some malformed files instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf %q: %v: %w", name, r, domain.ErrUnreadablePDF)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		return nil, fmt.Errorf("open pdf %q: %v: %w", name, err, domain.ErrUnreadablePDF)
	}
	defer f.Close()

	total := reader.NumPage()
	for num := 1; num <= total; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		text, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, Page{Number: num, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text in %q: %w", name, domain.ErrUnreadablePDF)
	}

	return pages, nil
}
