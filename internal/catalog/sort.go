package catalog

import (
	"slices"

	"github.com/robertarktes/gatherly/internal/domain"
)

type SortOrder string

const (
	SortNone      SortOrder = ""
	SortDate      SortOrder = "date"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortFeatured  SortOrder = "featured"
)

// SortItems returns a sorted copy. Ties keep their input order.
func SortItems(items []domain.UnifiedItem, order SortOrder) []domain.UnifiedItem {
	out := slices.Clone(items)

	switch order {
	case SortDate:
		slices.SortStableFunc(out, byStart)
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b domain.UnifiedItem) int {
			return cmpFloat(a.Price, b.Price)
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b domain.UnifiedItem) int {
			return cmpFloat(b.Price, a.Price)
		})
	case SortFeatured:
		slices.SortStableFunc(out, func(a, b domain.UnifiedItem) int {
			if a.Featured != b.Featured {
				if a.Featured {
					return -1
				}
				return 1
			}
			return byStart(a, b)
		})
	}
	return out
}

func byStart(a, b domain.UnifiedItem) int {
	return a.Start.Compare(b.Start)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
