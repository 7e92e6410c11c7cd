package model

import "strings"

// Categories is the fixed display order of menu categories.
var Categories = []string{
	"breakfast",
	"main-course",
	"snacks",
	"beverages",
	"bakery",
	"soft-drinks",
	"ice-cream",
	"fast-foods",
	"milk-shakes",
	"juices",
}

// CategoryGroup is a category heading with its items.
type CategoryGroup struct {
	Category string
	Items    []MenuItem
}

// CategoryLabel turns a category slug into a display label ("main-course" -> "Main course").
func CategoryLabel(category string) string {
	label := strings.ReplaceAll(category, "-", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// GroupByCategory groups items by category. Known categories come first in
// Categories order, unknown ones follow in first-seen order. Item order within
// a group is preserved.
func GroupByCategory(items []MenuItem) []CategoryGroup {
	byCategory := make(map[string][]MenuItem)
	var unknown []string
	known := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		known[c] = true
	}

	for _, item := range items {
		if _, seen := byCategory[item.Category]; !seen && !known[item.Category] {
			unknown = append(unknown, item.Category)
		}
		byCategory[item.Category] = append(byCategory[item.Category], item)
	}

	var groups []CategoryGroup
	for _, c := range append(append([]string{}, Categories...), unknown...) {
		if len(byCategory[c]) == 0 {
			continue
		}
		groups = append(groups, CategoryGroup{Category: c, Items: byCategory[c]})
	}
	return groups
}

// Available returns only the items currently marked available.
func Available(items []MenuItem) []MenuItem {
	var out []MenuItem
	for _, item := range items {
		if item.Available {
			out = append(out, item)
		}
	}
	return out
}
