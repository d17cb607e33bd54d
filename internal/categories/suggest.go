package categories

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"spendly/internal/models"
)

// maxSuggestDistance bounds how different a suggestion may be from the typed name.
const maxSuggestDistance = 3

// Suggest returns the known category name closest to name when name itself is not a
// known category. Comparison ignores case. It returns false when name is known or
// nothing is close enough.
func Suggest(name string, list []models.Category) (string, bool) {
	if name == "" {
		return "", false
	}
	if _, ok := FindByName(list, name); ok {
		return "", false
	}

	target := strings.ToLower(name)
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range list {
		d := levenshtein.ComputeDistance(target, strings.ToLower(c.Name))
		if d < bestDist {
			best = c.Name
			bestDist = d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
