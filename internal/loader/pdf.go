package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// loadPDF extracts one segment per page so that answers can cite the page a
// passage came from. Pages that fail text extraction are skipped rather
// than failing the whole document.
func loadPDF(path string) ([]Segment, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	total := reader.NumPage()
	segments := make([]Segment, 0, total)
	for n := 1; n <= total; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Page: n})
	}
	return segments, nil
}
