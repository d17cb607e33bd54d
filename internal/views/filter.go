package views

import (
	"strings"

	"spendly/internal/models"
)

// AllCategories disables the category restriction of a filter.
const AllCategories = "all"

type FilterOptions struct {
	Query    string
	Category string
}

type FilterResult struct {
	Expenses []models.Expense `json:"expenses"`
	Total    float64          `json:"total"`
}

// Filter keeps expenses whose title or description contains the query, ignoring
// case, and whose category matches exactly unless the category is "all" or empty.
func Filter(expenses []models.Expense, opts FilterOptions) FilterResult {
	query := strings.ToLower(opts.Query)
	matched := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if !matchesCategory(e, opts.Category) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(e.Title), query) &&
			!strings.Contains(strings.ToLower(e.Description), query) {
			continue
		}
		matched = append(matched, e)
	}
	return FilterResult{Expenses: matched, Total: Total(matched)}
}

func matchesCategory(e models.Expense, category string) bool {
	return category == "" || category == AllCategories || e.Category == category
}
