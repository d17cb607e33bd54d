package categories

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendly/internal/models"
)

func expensesIn(names ...string) []models.Expense {
	out := make([]models.Expense, 0, len(names))
	for i, n := range names {
		out = append(out, models.Expense{ID: fmt.Sprintf("e%d", i), Title: "x", Category: n, Amount: 1})
	}
	return out
}

func TestDerive(t *testing.T) {
	t.Run("distinct names in first-seen order", func(t *testing.T) {
		got := Derive(expensesIn("Food", "Rent", "Food", "Travel", "Rent"))
		require.Len(t, got, 3)
		assert.Equal(t, "Food", got[0].Name)
		assert.Equal(t, "Rent", got[1].Name)
		assert.Equal(t, "Travel", got[2].Name)
		for i, c := range got {
			assert.Equal(t, c.Name, c.ID)
			assert.Equal(t, DefaultIcon, c.Icon)
			assert.Equal(t, Palette[i], c.Color)
		}
	})

	t.Run("palette cycles after eight names", func(t *testing.T) {
		names := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			names = append(names, fmt.Sprintf("cat-%02d", i))
		}
		got := Derive(expensesIn(names...))
		require.Len(t, got, 20)
		for i, c := range got {
			assert.Equal(t, Palette[i%8], c.Color, "category %d", i)
		}
	})

	t.Run("no expenses yields no categories", func(t *testing.T) {
		assert.Empty(t, Derive(nil))
	})
}

func TestMerge(t *testing.T) {
	derived := Derive(expensesIn("Food", "Rent"))

	t.Run("custom wins on name collision and keeps position", func(t *testing.T) {
		custom := []models.Category{{ID: "c-1", Name: "Food", Color: "C2", Icon: "utensils"}}
		got := Merge(derived, custom)
		require.Len(t, got, 2)
		assert.Equal(t, custom[0], got[0])
		assert.Equal(t, "Rent", got[1].Name)
	})

	t.Run("custom-only names survive without expenses", func(t *testing.T) {
		custom := []models.Category{{ID: "c-2", Name: "Gifts", Color: "C3", Icon: "gift"}}
		got := Merge(nil, custom)
		assert.Equal(t, custom, got)

		got = Merge(derived, custom)
		require.Len(t, got, 3)
		assert.Equal(t, "Gifts", got[2].Name)
	})

	t.Run("names are the union of both sides", func(t *testing.T) {
		custom := []models.Category{
			{ID: "c-1", Name: "Food", Color: "C2", Icon: "utensils"},
			{ID: "c-2", Name: "Gifts", Color: "C3", Icon: "gift"},
		}
		got := Effective(expensesIn("Food", "Rent", "Food"), custom)
		names := make([]string, 0, len(got))
		for _, c := range got {
			names = append(names, c.Name)
		}
		assert.ElementsMatch(t, []string{"Food", "Rent", "Gifts"}, names)
	})
}

func TestEffectiveCustomColorWins(t *testing.T) {
	expenses := expensesIn("Food")
	require.Equal(t, Palette[0], Derive(expenses)[0].Color)

	custom := []models.Category{{ID: "1700000000000", Name: "Food", Color: "C2", Icon: DefaultIcon}}
	got := Effective(expenses, custom)
	require.Len(t, got, 1)
	assert.Equal(t, "C2", got[0].Color)
}

func TestIsCustom(t *testing.T) {
	assert.False(t, IsCustom(NewDerived("Food", 0)))
	assert.True(t, IsCustom(models.Category{ID: "abc", Name: "Food", Icon: DefaultIcon}))
	assert.True(t, IsCustom(models.Category{ID: "Food", Name: "Food", Icon: "pizza"}))

	list := []models.Category{
		NewDerived("Food", 0),
		{ID: "abc", Name: "Gifts", Icon: DefaultIcon},
	}
	assert.Equal(t, []models.Category{list[1]}, CustomOnly(list))
}

func TestLookups(t *testing.T) {
	list := Derive(expensesIn("Food", "Rent"))

	c, ok := FindByName(list, "Rent")
	assert.True(t, ok)
	assert.Equal(t, "Rent", c.ID)

	_, ok = FindByName(list, "rent")
	assert.False(t, ok)

	assert.Equal(t, 1, IndexOfID(list, "Rent"))
	assert.Equal(t, -1, IndexOfID(list, "missing"))
}

func TestSuggest(t *testing.T) {
	list := Derive(expensesIn("Groceries", "Rent", "Transport"))

	got, ok := Suggest("Grocerys", list)
	assert.True(t, ok)
	assert.Equal(t, "Groceries", got)

	got, ok = Suggest("rent", list)
	assert.True(t, ok)
	assert.Equal(t, "Rent", got)

	_, ok = Suggest("Rent", list)
	assert.False(t, ok, "known names need no suggestion")

	_, ok = Suggest("Entertainment", list)
	assert.False(t, ok)

	_, ok = Suggest("", list)
	assert.False(t, ok)
}
