package workbook

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Caps on the flattened text representation. Inspection workbooks put the
// interesting fields near the top-left; past these bounds the text only
// inflates the prompt.
const (
	maxFlattenRows = 50
	maxFlattenCols = 20
)

// Flatten renders every sheet of a workbook as plain text for the extraction
// prompt: non-empty cells with their coordinates, one line per row, plus the
// header row echoed separately so column names survive even when the sheet
// is sparse.
func Flatten(path string) (string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return "", eris.Wrap(err, "workbook: open file")
	}

	var b strings.Builder
	for _, sheet := range f.Sheets {
		fmt.Fprintf(&b, "=== SHEET: %s ===\n", sheet.Name)

		for i, row := range sheet.Rows {
			if i >= maxFlattenRows {
				break
			}
			var cells []string
			for j, cell := range row.Cells {
				if j >= maxFlattenCols {
					break
				}
				v := strings.TrimSpace(cell.String())
				if v != "" {
					cells = append(cells, fmt.Sprintf("[%d,%d]: %s", i, j, v))
				}
			}
			if len(cells) > 0 {
				fmt.Fprintf(&b, "Row %d: %s\n", i, strings.Join(cells, " | "))
			}
		}

		if len(sheet.Rows) > 0 {
			headers := cellStrings(sheet.Rows[0])
			if !allEmpty(headers) {
				fmt.Fprintf(&b, "COLUMN HEADERS: %s\n", strings.Join(headers, ", "))
			}
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "", eris.New("workbook: file has no sheets")
	}
	return b.String(), nil
}
