// Package export writes expenses out as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"spendly/internal/models"
)

var ErrNoExpenses = errors.New("no expenses to export")

var header = []string{"Title", "Amount", "Category", "Date", "Description"}

// FileName is the suggested name for an export made at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("expenses_%s.csv", now.Format(models.DateLayout))
}

// WriteCSV writes one row per expense after the header. An empty list is an error
// so callers never produce a header-only file.
func WriteCSV(w io.Writer, expenses []models.Expense) error {
	if len(expenses) == 0 {
		return ErrNoExpenses
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range expenses {
		row := []string{
			e.Title,
			strconv.FormatFloat(e.Amount, 'f', -1, 64),
			e.Category,
			e.Date,
			e.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write expense %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
