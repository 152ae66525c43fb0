package constants

import (
	"strings"
)

type Category string

const (
	Food          Category = "food"
	Transport     Category = "transport"
	Shopping      Category = "shopping"
	Health        Category = "health"
	Entertainment Category = "entertainment"
)

// categoryPriority is the fixed match order: the first category whose
// keyword set hits anywhere in the text wins.
var categoryPriority = []Category{
	Food,
	Transport,
	Shopping,
	Health,
	Entertainment,
}

// categoryKeywords pairs each category with English and Vietnamese variants.
var categoryKeywords = map[Category][]string{
	Food:          {"food", "restaurant", "cafe", "coffee", "đồ ăn", "nhà hàng", "quán"},
	Transport:     {"transport", "taxi", "grab", "uber", "xe"},
	Shopping:      {"shopping", "store", "market", "mua sắm", "siêu thị"},
	Health:        {"health", "hospital", "pharmacy", "y tế", "bệnh viện"},
	Entertainment: {"entertainment", "movie", "cinema", "giải trí"},
}

func AllCategories() []string {
	result := make([]string, len(categoryPriority))
	for i, cat := range categoryPriority {
		result[i] = string(cat)
	}
	return result
}

// DetectCategory scans lowercased receipt text against the keyword sets in
// priority order. Returns false when no category matches.
func DetectCategory(text string) (Category, bool) {
	lower := strings.ToLower(text)
	for _, cat := range categoryPriority {
		for _, keyword := range categoryKeywords[cat] {
			if strings.Contains(lower, keyword) {
				return cat, true
			}
		}
	}
	return "", false
}
