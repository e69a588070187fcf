package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

type xlsxExtractor struct{}

func init() {
	Register("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsxExtractor{})
	Register("application/vnd.ms-excel", xlsxExtractor{})
}

// Extract reads the first sheet only; any further sheets are ignored. Each
// row's cells are joined by spaces, rows by newlines.
func (xlsxExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	_ = ctx
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return "", nil
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrExtraction, err)
	}
	flattened := make([]string, 0, len(rows))
	for _, row := range rows {
		flattened = append(flattened, strings.Join(row, " "))
	}
	return strings.Join(flattened, " \n"), nil
}
