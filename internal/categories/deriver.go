// Package categories computes the working category set from observed expenses and
// the user's own category overrides.
package categories

import (
	"spendly/internal/models"
)

const DefaultIcon = "tag"

// Palette is cycled through in derivation order.
var Palette = [8]string{
	"hsl(173, 80%, 45%)",
	"hsl(280, 65%, 60%)",
	"hsl(38, 92%, 50%)",
	"hsl(340, 75%, 55%)",
	"hsl(200, 75%, 50%)",
	"hsl(160, 84%, 39%)",
	"hsl(25, 95%, 53%)",
	"hsl(262, 83%, 58%)",
}

func ColorFor(index int) string {
	if index < 0 {
		index = -index
	}
	return Palette[index%len(Palette)]
}

// NewDerived builds the derived-provenance entry for a category name.
func NewDerived(name string, index int) models.Category {
	return models.Category{
		ID:    name,
		Name:  name,
		Color: ColorFor(index),
		Icon:  DefaultIcon,
	}
}

// Derive returns one category per distinct expense category name, in first-seen order.
func Derive(expenses []models.Expense) []models.Category {
	seen := make(map[string]struct{}, len(expenses))
	derived := make([]models.Category, 0)
	for _, e := range expenses {
		if _, ok := seen[e.Category]; ok {
			continue
		}
		seen[e.Category] = struct{}{}
		derived = append(derived, NewDerived(e.Category, len(derived)))
	}
	return derived
}

// Merge combines derived and custom categories by name. Custom entries replace a
// derived entry with the same name in place; names only present in custom are
// appended in their stored order.
func Merge(derived, custom []models.Category) []models.Category {
	merged := make([]models.Category, 0, len(derived)+len(custom))
	position := make(map[string]int, len(derived)+len(custom))

	put := func(c models.Category) {
		if i, ok := position[c.Name]; ok {
			merged[i] = c
			return
		}
		position[c.Name] = len(merged)
		merged = append(merged, c)
	}

	for _, c := range derived {
		put(c)
	}
	for _, c := range custom {
		put(c)
	}
	return merged
}

// Effective is the category list shown for a set of expenses and stored overrides.
func Effective(expenses []models.Expense, custom []models.Category) []models.Category {
	return Merge(Derive(expenses), custom)
}

// IsCustom reports whether c was authored by the user rather than derived.
func IsCustom(c models.Category) bool {
	return c.ID != c.Name || c.Icon != DefaultIcon
}

// CustomOnly keeps the entries that need persisting.
func CustomOnly(list []models.Category) []models.Category {
	custom := make([]models.Category, 0, len(list))
	for _, c := range list {
		if IsCustom(c) {
			custom = append(custom, c)
		}
	}
	return custom
}

func FindByName(list []models.Category, name string) (models.Category, bool) {
	for _, c := range list {
		if c.Name == name {
			return c, true
		}
	}
	return models.Category{}, false
}

func IndexOfID(list []models.Category, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}
