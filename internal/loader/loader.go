// Package loader converts uploaded source files into ordered text segments
// with page/row provenance. Supported formats: PDF (page-by-page), DOCX
// (paragraphs), plain text and markdown, CSV and XLSX (row-per-segment).
// Dispatch is by file extension; unrecognised extensions fail with
// [ErrUnsupportedFormat].
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when no extractor exists for the file's
// extension. Callers report it per-file without aborting a multi-file batch.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Segment is one extracted unit of source text. Depending on the format a
// segment is a PDF page, a DOCX paragraph run, a spreadsheet row, or the
// whole file.
type Segment struct {
	// Text is the extracted content.
	Text string

	// Page is the 1-based page or row the text came from. Zero means the
	// format carries no page information (plain text, DOCX).
	Page int
}

// Load extracts the ordered text segments of the file at path. The returned
// error wraps [ErrUnsupportedFormat] for unknown extensions; any other
// failure wraps the underlying cause. An empty segment list with a nil error
// means the file contained no extractable text.
func Load(path string) ([]Segment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return loadPDF(path)
	case ".docx":
		return loadDOCX(path)
	case ".txt", ".md", ".markdown":
		return loadText(path)
	case ".csv":
		return loadCSV(path)
	case ".xlsx":
		// Legacy binary .xls is not OOXML and excelize cannot read it, so it
		// falls through to ErrUnsupportedFormat rather than an opaque parse
		// failure.
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("loader: %s: %w", filepath.Base(path), ErrUnsupportedFormat)
	}
}

// loadText reads a plain text or markdown file as a single segment.
func loadText(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", filepath.Base(path), err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []Segment{{Text: text}}, nil
}

// loadCSV reads a delimited file. The first row is treated as the header;
// each subsequent row becomes one "header: value" segment so that column
// meaning survives chunking. Row numbers are 1-based over data rows.
func loadCSV(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: parsing %s: %w", filepath.Base(path), err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	segments := make([]Segment, 0, len(records)-1)
	for i, row := range records[1:] {
		var b strings.Builder
		for j, cell := range row {
			if j < len(header) {
				b.WriteString(header[j])
				b.WriteString(": ")
			}
			b.WriteString(cell)
			if j < len(row)-1 {
				b.WriteString("\n")
			}
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Page: i + 1})
	}
	return segments, nil
}
