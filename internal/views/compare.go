package views

import (
	"time"

	"github.com/shopspring/decimal"

	"spendly/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Period is an inclusive range of calendar days. A zero Start or End leaves the
// period unset.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) IsSet() bool {
	return !p.Start.IsZero() && !p.End.IsZero()
}

func (p Period) contains(d time.Time) bool {
	start, end := dayOf(p.Start), dayOf(p.End)
	return !d.Before(start) && !d.After(end)
}

type PeriodSummary struct {
	Expenses []models.Expense `json:"expenses"`
	Total    float64          `json:"total"`
}

type CategoryDelta struct {
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Period1 float64 `json:"period1"`
	Period2 float64 `json:"period2"`
}

type Comparison struct {
	Period1       PeriodSummary   `json:"period1"`
	Period2       PeriodSummary   `json:"period2"`
	Difference    float64         `json:"difference"`
	PercentChange float64         `json:"percentChange"`
	Breakdown     []CategoryDelta `json:"breakdown"`

	ready bool
}

// Ready reports whether both periods were fully specified.
func (c Comparison) Ready() bool {
	return c.ready
}

// InPeriod returns the expenses dated inside p. An unset period matches nothing.
func InPeriod(expenses []models.Expense, p Period) []models.Expense {
	out := make([]models.Expense, 0)
	if !p.IsSet() {
		return out
	}
	for _, e := range expenses {
		d, ok := parseDate(e.Date)
		if !ok {
			continue
		}
		if p.contains(d) {
			out = append(out, e)
		}
	}
	return out
}

// Compare buckets expenses into two periods, optionally restricted to one category,
// and reports the change from the first period to the second.
func Compare(expenses []models.Expense, categories []models.Category, p1, p2 Period, category string) Comparison {
	scoped := expenses
	if category != "" && category != AllCategories {
		scoped = make([]models.Expense, 0, len(expenses))
		for _, e := range expenses {
			if e.Category == category {
				scoped = append(scoped, e)
			}
		}
	}

	in1 := InPeriod(scoped, p1)
	in2 := InPeriod(scoped, p2)
	total1 := sumOf(in1)
	total2 := sumOf(in2)
	diff := total2.Sub(total1)

	percent := decimal.Zero
	if total1.GreaterThan(decimal.Zero) {
		percent = diff.Div(total1).Mul(hundred)
	}

	cmp := Comparison{
		Period1:       PeriodSummary{Expenses: in1, Total: total1.InexactFloat64()},
		Period2:       PeriodSummary{Expenses: in2, Total: total2.InexactFloat64()},
		Difference:    diff.InexactFloat64(),
		PercentChange: percent.InexactFloat64(),
		Breakdown:     make([]CategoryDelta, 0),
		ready:         p1.IsSet() && p2.IsSet(),
	}

	for _, c := range categories {
		if category != "" && category != AllCategories && c.Name != category {
			continue
		}
		a := sumOf(byName(in1, c.Name))
		b := sumOf(byName(in2, c.Name))
		if a.IsZero() && b.IsZero() {
			continue
		}
		cmp.Breakdown = append(cmp.Breakdown, CategoryDelta{
			Name:    c.Name,
			Color:   c.Color,
			Period1: a.InexactFloat64(),
			Period2: b.InexactFloat64(),
		})
	}
	return cmp
}

func sumOf(expenses []models.Expense) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range expenses {
		sum = sum.Add(amountOf(e))
	}
	return sum
}

func byName(expenses []models.Expense, name string) []models.Expense {
	out := make([]models.Expense, 0)
	for _, e := range expenses {
		if e.Category == name {
			out = append(out, e)
		}
	}
	return out
}
