package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docmatch/internal/fileutil"
)

// Concatenator joins source documents, in order, into dst.
type Concatenator interface {
	Concatenate(ctx context.Context, dst string, sources ...string) error
}

var disableConfigDir sync.Once

// PDFConcatenator merges PDF files with pdfcpu. The merged document is
// written beside dst and renamed into place, so dst is either the complete
// result or untouched.
type PDFConcatenator struct {
	conf *model.Configuration
}

// NewPDFConcatenator returns a concatenator using relaxed validation, which
// tolerates the minor defects common in scanner output.
func NewPDFConcatenator() *PDFConcatenator {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFConcatenator{conf: conf}
}

// Concatenate implements Concatenator. The merged page count is checked
// against the sum of the sources before dst is replaced.
func (c *PDFConcatenator) Concatenate(ctx context.Context, dst string, sources ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("merge %s: no sources", filepath.Base(dst))
	}
	want := 0
	for _, src := range sources {
		n, err := countPages(src, c.conf)
		if err != nil {
			return fmt.Errorf("merge source: %w", err)
		}
		want += n
	}

	tmp, err := fileutil.TempPath(filepath.Dir(dst), filepath.Base(dst))
	if err != nil {
		return err
	}
	if err := api.MergeCreateFile(sources, tmp, false, c.conf); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("merge pdf: %w", err)
	}
	got, err := countPages(tmp, c.conf)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("merge pdf: %w", err)
	}
	if got != want {
		_ = os.Remove(tmp)
		return fmt.Errorf("merge %s: wrote %d pages, sources have %d", filepath.Base(dst), got, want)
	}
	return fileutil.ReplaceFile(tmp, dst)
}

// PageCount returns the number of pages in a PDF file.
func PageCount(path string) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return countPages(path, conf)
}

func countPages(path string, conf *model.Configuration) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := api.PageCount(f, conf)
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", filepath.Base(path), err)
	}
	return n, nil
}
