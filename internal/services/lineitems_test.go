package services

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestHydratePrices(t *testing.T) {
	prices := map[uint]decimal.Decimal{1: dec("10"), 2: dec("2.5")}
	tests := []struct {
		name        string
		in          []Line
		want        []Line
		wantMissing []uint
	}{
		{
			name: "catalog price when none supplied",
			in:   []Line{{ProductID: 1, Quantity: 2}},
			want: []Line{{ProductID: 1, Quantity: 2, UnitPrice: dec("10")}},
		},
		{
			name: "positive supplied price kept",
			in:   []Line{{ProductID: 2, Quantity: 1, UnitPrice: dec("3")}},
			want: []Line{{ProductID: 2, Quantity: 1, UnitPrice: dec("3")}},
		},
		{
			name: "zero quantity becomes one",
			in:   []Line{{ProductID: 2}},
			want: []Line{{ProductID: 2, Quantity: 1, UnitPrice: dec("2.5")}},
		},
		{
			name:        "unknown products reported once",
			in:          []Line{{ProductID: 9, Quantity: 1}, {ProductID: 1, Quantity: 1}, {ProductID: 9, Quantity: 2, UnitPrice: dec("4")}, {ProductID: 7}},
			want:        []Line{{ProductID: 9, Quantity: 1, UnitPrice: decimal.Zero}, {ProductID: 1, Quantity: 1, UnitPrice: dec("10")}, {ProductID: 9, Quantity: 2, UnitPrice: dec("4")}, {ProductID: 7, Quantity: 1, UnitPrice: decimal.Zero}},
			wantMissing: []uint{9, 7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := HydratePrices(tt.in, prices)
			assert.Equal(t, tt.wantMissing, missing)
			if assert.Len(t, got, len(tt.want)) {
				for i := range got {
					assert.Equal(t, tt.want[i].ProductID, got[i].ProductID)
					assert.Equal(t, tt.want[i].Quantity, got[i].Quantity)
					assert.True(t, tt.want[i].UnitPrice.Equal(got[i].UnitPrice), "line %d price %s", i, got[i].UnitPrice)
				}
			}
		})
	}
}

func TestMergeLines(t *testing.T) {
	in := []Line{
		{ProductID: 3, Quantity: 1, UnitPrice: dec("5")},
		{ProductID: 1, Quantity: 2, UnitPrice: dec("10")},
		{ProductID: 3, Quantity: 4, UnitPrice: dec("99")},
		{ProductID: 1, Quantity: 3, UnitPrice: dec("10")},
	}
	got := MergeLines(in)
	if assert.Len(t, got, 2) {
		assert.Equal(t, uint(3), got[0].ProductID)
		assert.Equal(t, 5, got[0].Quantity)
		assert.True(t, got[0].UnitPrice.Equal(dec("5")), "first occurrence price wins")
		assert.Equal(t, uint(1), got[1].ProductID)
		assert.Equal(t, 5, got[1].Quantity)
	}
	assert.True(t, TotalOf(got).Equal(dec("75")))
}

func TestMergeLinesSaturates(t *testing.T) {
	huge := math.MaxInt/2 + 1
	got := MergeLines([]Line{
		{ProductID: 1, Quantity: huge, UnitPrice: dec("1")},
		{ProductID: 1, Quantity: huge, UnitPrice: dec("1")},
	})
	if assert.Len(t, got, 1) {
		assert.Equal(t, math.MaxInt, got[0].Quantity)
	}
}

func TestTotalOfExactDecimal(t *testing.T) {
	lines := []Line{
		{ProductID: 1, Quantity: 3, UnitPrice: dec("0.1")},
		{ProductID: 2, Quantity: 1, UnitPrice: dec("0.2")},
	}
	assert.Equal(t, "0.5", TotalOf(lines).String())
	assert.True(t, TotalOf(nil).IsZero())
}

func TestDistinctProductIDs(t *testing.T) {
	got := DistinctProductIDs([]Line{{ProductID: 4}, {ProductID: 2}, {ProductID: 4}, {ProductID: 1}})
	assert.Equal(t, []uint{4, 2, 1}, got)
}
