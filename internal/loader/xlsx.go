package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// loadXLSX extracts one segment per spreadsheet row, prefixing cells with
// the first row's headers. Row numbers are 1-based over data rows and run
// continuously across sheets.
func loadXLSX(path string) ([]Segment, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	var segments []Segment
	rowNum := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("loader: reading sheet %q in %s: %w", sheet, filepath.Base(path), err)
		}
		if len(rows) < 2 {
			continue
		}
		header := rows[0]
		for _, row := range rows[1:] {
			rowNum++
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
			segments = append(segments, Segment{Text: text, Page: rowNum})
		}
	}
	return segments, nil
}
