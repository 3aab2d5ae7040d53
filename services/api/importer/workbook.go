package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseWorkbook reads the first sheet of an .xlsx/.xls upload into raw rows.
// Row 1 is the header: its cells become the row keys. Blank cells default to
// "" and fully blank rows are dropped.
func ParseWorkbook(r io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 1 {
		return nil, errors.New("workbook is empty")
	}

	header := rows[0]
	out := make([]RawRow, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		if blankRow(cells) {
			continue
		}
		row := make(RawRow, len(header))
		for col, name := range header {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if col < len(cells) {
				row[name] = cells[col]
			} else {
				row[name] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
