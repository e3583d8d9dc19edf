// Package pdfdoc extracts the text layer of PDF documents for indexing.
package pdfdoc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText signals a PDF without an extractable text layer, such as a scan.
var ErrNoText = errors.New("pdf has no text layer")

// ReadFile opens path and returns its text.
func ReadFile(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}
	return ExtractText(f, st.Size())
}

// ExtractText returns the text of every page in order, one paragraph per page.
// Whitespace runs inside a page collapse to one space.
func ExtractText(r io.ReaderAt, size int64) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("parse pdf: %v", p)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	fonts := make(map[string]*pdf.Font)
	pages := make([]string, 0, doc.NumPage())
	for i := 1; i <= doc.NumPage(); i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		raw, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if t := strings.Join(strings.Fields(raw), " "); t != "" {
			pages = append(pages, t)
		}
	}

	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}
