// Package workbook reads tank-inspection spreadsheets into the raw key/value
// form the reconciler consumes, and flattens whole workbooks into the text
// representation the AI extraction prompt is built from.
package workbook

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/oilpro/tanks-cli/internal/model"
)

// Options selects which sheet a record is read from.
type Options struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// FirstRecord reads one workbook and returns the first data row as a raw
// field bag, keyed by the header row. Sheets laid out as label/value pairs
// (one field per row, no header row) are handled by a fallback scan: any row
// whose first cell looks like a label and whose second cell holds a value
// contributes one pair.
func FirstRecord(path string, opts Options) (model.RawFieldBag, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open file")
	}

	sheet, err := pickSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("workbook: sheet %q is empty", sheet.Name)
	}

	var bag model.RawFieldBag
	if looksTabular(sheet) {
		bag = tabularRecord(sheet)
	} else {
		bag = labelPairRecord(sheet)
	}
	if len(bag) == 0 {
		return nil, eris.Errorf("workbook: no field data found on sheet %q", sheet.Name)
	}
	return bag, nil
}

// looksTabular guesses the sheet layout: a header row with two or more
// plain column names means header-over-data; a first cell ending in ":"
// means label/value rows. Anything fancier is deliberately out of scope.
func looksTabular(sheet *xlsx.Sheet) bool {
	if len(sheet.Rows) < 2 {
		return false
	}
	headers := cellStrings(sheet.Rows[0])
	nonEmpty := 0
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if strings.HasSuffix(h, ":") {
			return false
		}
		nonEmpty++
	}
	return nonEmpty >= 2
}

// tabularRecord zips the header row with the first non-empty data row.
func tabularRecord(sheet *xlsx.Sheet) model.RawFieldBag {
	if len(sheet.Rows) < 2 {
		return nil
	}
	headers := cellStrings(sheet.Rows[0])

	for _, row := range sheet.Rows[1:] {
		values := cellStrings(row)
		if allEmpty(values) {
			continue
		}
		bag := model.RawFieldBag{}
		for i, h := range headers {
			h = strings.TrimSpace(h)
			if h == "" || i >= len(values) {
				continue
			}
			if v := strings.TrimSpace(values[i]); v != "" {
				bag[h] = v
			}
		}
		return bag
	}
	return nil
}

// labelPairRecord scans a sheet row by row for "label: value" style layouts.
func labelPairRecord(sheet *xlsx.Sheet) model.RawFieldBag {
	bag := model.RawFieldBag{}
	for _, row := range sheet.Rows {
		cells := cellStrings(row)
		if len(cells) < 2 {
			continue
		}
		label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cells[0]), ":"))
		value := strings.TrimSpace(cells[1])
		if label == "" || value == "" {
			continue
		}
		if _, exists := bag[label]; !exists {
			bag[label] = value
		}
	}
	return bag
}

func pickSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("workbook: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}
	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("workbook: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

func cellStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = cell.String()
	}
	return out
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
