package xlsx

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path"
	"strings"
)

// OpenCSV reads a delimited text file as a single-sheet workbook. The sheet
// takes its name from the file.
func OpenCSV(data []byte, name string) (*Reader, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	sheet := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if sheet == "" || sheet == "." {
		sheet = "Sheet1"
	}
	return &Reader{
		sheets: []*Sheet{{Name: sheet, Rows: squareRows(rows)}},
		meta:   map[string]string{"sheetCount": "1"},
	}, nil
}

// IsDelimited reports whether the name points at a delimited text file
// rather than a workbook archive.
func IsDelimited(name string) bool {
	return strings.EqualFold(path.Ext(name), ".csv")
}
