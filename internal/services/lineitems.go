package services

import (
	"math"

	"github.com/shopspring/decimal"
)

// Line is one submitted or resolved invoice line.
type Line struct {
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns quantity × unit price.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DistinctProductIDs returns the product ids of lines in first-seen order.
func DistinctProductIDs(lines []Line) []uint {
	seen := make(map[uint]struct{}, len(lines))
	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

// HydratePrices resolves every line against the current catalog prices.
// A strictly positive unit price is kept, anything else takes the product
// price. A non-positive quantity becomes 1. The second result lists the
// product ids missing from prices, in first-seen order. Lines are not merged.
func HydratePrices(lines []Line, prices map[uint]decimal.Decimal) ([]Line, []uint) {
	out := make([]Line, 0, len(lines))
	var missing []uint
	reported := make(map[uint]bool)
	for _, l := range lines {
		if l.Quantity <= 0 {
			l.Quantity = 1
		}
		if !l.UnitPrice.IsPositive() {
			price, ok := prices[l.ProductID]
			if !ok {
				if !reported[l.ProductID] {
					reported[l.ProductID] = true
					missing = append(missing, l.ProductID)
				}
				price = decimal.Zero
			}
			l.UnitPrice = price
		} else if _, ok := prices[l.ProductID]; !ok && !reported[l.ProductID] {
			reported[l.ProductID] = true
			missing = append(missing, l.ProductID)
		}
		out = append(out, l)
	}
	return out, missing
}

// MergeLines collapses lines of the same product. The first occurrence keeps
// its position and unit price; later occurrences only add their quantity.
// A sum that would overflow int saturates at math.MaxInt.
func MergeLines(lines []Line) []Line {
	index := make(map[uint]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			if l.Quantity > 0 && merged[i].Quantity > math.MaxInt-l.Quantity {
				merged[i].Quantity = math.MaxInt
			} else {
				merged[i].Quantity += l.Quantity
			}
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// TotalOf sums the line totals.
func TotalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}
