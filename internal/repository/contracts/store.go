// Package contracts stores the uploaded contract PDFs on disk. The index
// references chunks by source filename; this store owns the files themselves.
package contracts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/clauseinsight/clauseinsight/internal/domain"
)

const pdfPattern = "**/*.pdf"

// FileInfo describes one retained contract file.
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Store keeps contract PDFs under a single directory.
type Store struct {
	dir string
}

// New creates the contracts directory if needed and returns a store over it.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve contracts dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create contracts dir %q: %w", abs, err)
	}

	return &Store{dir: abs}, nil
}

// Dir returns the absolute contracts directory.
func (s *Store) Dir() string { return s.dir }

// Save writes an uploaded PDF under its filename, replacing any previous
// upload of the same name. The name must be a bare .pdf filename.
func (s *Store) Save(name string, r io.Reader) (string, int64, error) {
	if err := validateName(name); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", 0, fmt.Errorf("write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, fmt.Errorf("close temp file: %w", err)
	}

	// Rename over any previous version so re-uploads replace atomically.
	dst := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, fmt.Errorf("store %q: %w", name, err)
	}

	return dst, size, nil
}

// Path resolves a stored contract filename to its absolute path.
func (s *Store) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("contract %q: %w", name, domain.ErrNotFound)
		}
		return "", fmt.Errorf("stat %q: %w", name, err)
	}

	return path, nil
}

// List returns all retained PDFs sorted by name.
func (s *Store) List() ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, rerr := filepath.Rel(s.dir, path)
		if rerr != nil {
			return rerr
		}

		matched, merr := doublestar.Match(pdfPattern, rel)
		if merr != nil || !matched {
			return nil
		}

		files = append(files, FileInfo{
			Name:    filepath.Base(path),
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk contracts dir: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files, nil
}

// Names returns the retained PDF filenames sorted by name.
func (s *Store) Names() ([]string, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names, nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrInvalidArgument)
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("%w: filename %q must not contain path separators", domain.ErrInvalidArgument, name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return fmt.Errorf("%w: only PDF files are supported, got %q", domain.ErrInvalidArgument, name)
	}
	return nil
}
