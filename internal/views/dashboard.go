// Package views holds the read-side computations behind the dashboard, the
// expense list and the period comparison. Every function here is pure.
package views

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"spendly/internal/models"
)

// FallbackColor is used for a category slice whose name has no Category entry.
const FallbackColor = "hsl(var(--chart-1))"

type CategoryTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

type Stats struct {
	Total           float64        `json:"total"`
	MonthlyTotal    float64        `json:"monthlyTotal"`
	HighestCategory *CategoryTotal `json:"highestCategory,omitempty"`
	ExpenseCount    int            `json:"expenseCount"`
}

type MonthTotal struct {
	Month time.Month `json:"month"`
	Label string     `json:"label"`
	Total float64    `json:"total"`
}

type CategorySlice struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
	Color string  `json:"color"`
}

type Usage struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

func amountOf(e models.Expense) decimal.Decimal {
	return decimal.NewFromFloat(e.Amount)
}

// parseDate reads an expense date at day precision. Unreadable dates report false.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return dayOf(t), true
	}
	return time.Time{}, false
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Total sums the amounts of expenses.
func Total(expenses []models.Expense) float64 {
	return sumOf(expenses).InexactFloat64()
}

// totalsByCategory returns per-category sums in first-seen order.
func totalsByCategory(expenses []models.Expense) []CategoryTotal {
	index := make(map[string]int)
	sums := make([]decimal.Decimal, 0)
	names := make([]string, 0)
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(names)
			index[e.Category] = i
			names = append(names, e.Category)
			sums = append(sums, decimal.Zero)
		}
		sums[i] = sums[i].Add(amountOf(e))
	}

	out := make([]CategoryTotal, len(names))
	for i, name := range names {
		out[i] = CategoryTotal{Name: name, Total: sums[i].InexactFloat64()}
	}
	return out
}

// DashboardStats computes the headline numbers for the dashboard. The month-to-date
// total counts expenses whose date falls in now's month and year.
func DashboardStats(expenses []models.Expense, now time.Time) Stats {
	stats := Stats{ExpenseCount: len(expenses)}

	total := decimal.Zero
	monthly := decimal.Zero
	for _, e := range expenses {
		amount := amountOf(e)
		total = total.Add(amount)
		if d, ok := parseDate(e.Date); ok && d.Year() == now.Year() && d.Month() == now.Month() {
			monthly = monthly.Add(amount)
		}
	}
	stats.Total = total.InexactFloat64()
	stats.MonthlyTotal = monthly.InexactFloat64()

	byCategory := totalsByCategory(expenses)
	if len(byCategory) > 0 {
		sort.SliceStable(byCategory, func(i, j int) bool {
			return byCategory[i].Total > byCategory[j].Total
		})
		highest := byCategory[0]
		stats.HighestCategory = &highest
	}
	return stats
}

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthlySeries buckets the expenses dated in year into twelve monthly totals.
func MonthlySeries(expenses []models.Expense, year int) []MonthTotal {
	sums := make([]decimal.Decimal, 12)
	for i := range sums {
		sums[i] = decimal.Zero
	}
	for _, e := range expenses {
		d, ok := parseDate(e.Date)
		if !ok || d.Year() != year {
			continue
		}
		m := int(d.Month()) - 1
		sums[m] = sums[m].Add(amountOf(e))
	}

	series := make([]MonthTotal, 12)
	for i := range series {
		series[i] = MonthTotal{
			Month: time.Month(i + 1),
			Label: monthLabels[i],
			Total: sums[i].InexactFloat64(),
		}
	}
	return series
}

// CategoryBreakdown returns spending per category name with the category's color.
func CategoryBreakdown(expenses []models.Expense, categories []models.Category) []CategorySlice {
	colors := make(map[string]string, len(categories))
	for _, c := range categories {
		if _, ok := colors[c.Name]; !ok {
			colors[c.Name] = c.Color
		}
	}

	totals := totalsByCategory(expenses)
	slices := make([]CategorySlice, 0, len(totals))
	for _, ct := range totals {
		color, ok := colors[ct.Name]
		if !ok {
			color = FallbackColor
		}
		slices = append(slices, CategorySlice{Name: ct.Name, Total: ct.Total, Color: color})
	}
	return slices
}

// Recent returns up to n expenses from the head of the collection, which the
// provider keeps newest-added first.
func Recent(expenses []models.Expense, n int) []models.Expense {
	if n <= 0 {
		return []models.Expense{}
	}
	if n > len(expenses) {
		n = len(expenses)
	}
	out := make([]models.Expense, n)
	copy(out, expenses[:n])
	return out
}

func CategoryUsage(expenses []models.Expense, name string) Usage {
	var u Usage
	sum := decimal.Zero
	for _, e := range expenses {
		if e.Category != name {
			continue
		}
		u.Count++
		sum = sum.Add(amountOf(e))
	}
	u.Total = sum.InexactFloat64()
	return u
}
