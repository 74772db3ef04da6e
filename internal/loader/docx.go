package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
)

// loadDOCX extracts paragraph and table text in document order. DOCX has no
// stable page concept before rendering, so segments carry no page number.
func loadDOCX(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("loader: stat %s: %w", filepath.Base(path), err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("loader: parsing %s: %w", filepath.Base(path), err)
	}

	var segments []Segment
	for _, item := range doc.Document.Body.Items {
		var text string
		switch it := item.(type) {
		case *docx.Paragraph:
			text = it.String()
		case *docx.Table:
			text = it.String()
		default:
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text})
	}
	return segments, nil
}
