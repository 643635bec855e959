package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kitsunelab/atsume/internal/models"
)

// extractExcel flattens every sheet into tab-separated rows. Each sheet
// becomes one page so chunk provenance can point back to a sheet.
func extractExcel(content []byte) ([]models.DocumentPage, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var pages []models.DocumentPage
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		var b strings.Builder
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		pages = append(pages, models.DocumentPage{
			Text:       strings.TrimSpace(b.String()),
			PageNumber: i + 1,
		})
	}
	return pages, nil
}
