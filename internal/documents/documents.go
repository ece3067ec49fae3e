// Package documents enumerates the primary and support collections.
package documents

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docmatch/internal/logging"
)

// DefaultBodyTextSuffix names the sidecar holding pre-extracted body text:
// "X.pdf" is accompanied by "X.pdf.txt".
const DefaultBodyTextSuffix = ".txt"

// maxBodyTextBytes bounds how much sidecar text is read per document.
const maxBodyTextBytes = 1 << 20

// Document is one input file.
type Document struct {
	Name     string
	Path     string
	BodyText string
}

// ListOptions filters and enriches a directory listing.
type ListOptions struct {
	// Extensions are matched case-insensitively, with the leading dot.
	// Empty means ".pdf".
	Extensions []string
	// BodyTextSuffix appended to a document path locates its sidecar. Empty
	// disables sidecars.
	BodyTextSuffix string
	Logger         *slog.Logger
}

// List returns the documents in dir sorted by name. Hidden files,
// directories and non-matching extensions are skipped. Failure to read dir
// itself is returned; unreadable sidecars are logged and ignored.
func List(dir string, opts ListOptions) ([]Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() || !hasExtension(name, exts) {
			continue
		}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		docs = append(docs, load(path, opts.BodyTextSuffix, logger))
	}
	return docs, nil
}

// Open loads a single document and its sidecar. Unlike List it applies no
// extension filter.
func Open(path string, opts ListOptions) (Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("open document: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Document{}, fmt.Errorf("open document %s: not a regular file", path)
	}
	return load(path, opts.BodyTextSuffix, logger), nil
}

func load(path, suffix string, logger *slog.Logger) Document {
	doc := Document{Name: filepath.Base(path), Path: path}
	if suffix == "" {
		return doc
	}
	text, err := readBodyText(path + suffix)
	if err != nil {
		logging.WarnWithContext(logger, "body text sidecar unreadable", "sidecar_read_failed",
			logging.Document(doc.Name),
			logging.String(logging.FieldErrorHint, "check sidecar permissions or remove it"),
			logging.String(logging.FieldImpact, "document matched on its file name only"),
			logging.Error(err),
		)
	}
	doc.BodyText = text
	return doc
}

func hasExtension(name string, exts []string) bool {
	ext := filepath.Ext(name)
	for _, want := range exts {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func readBodyText(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBodyTextBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
