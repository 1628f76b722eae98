package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	lines := []OrderLine{
		{ProductID: "p1", Quantity: 2, Price: decimal.NewFromInt(10)},
		{ProductID: "p2", Quantity: 1, Price: decimal.NewFromInt(5)},
	}

	totals := ComputeTotals(lines)

	assert.True(t, totals.TotalPrice.Equal(decimal.NewFromInt(25)),
		"expected total price 25, got %s", totals.TotalPrice)
	assert.Equal(t, 2, totals.TotalProduct)
}

func TestComputeTotalsCountsLinesNotQuantities(t *testing.T) {
	lines := []OrderLine{
		{ProductID: "p1", Quantity: 7, Price: decimal.NewFromInt(3)},
	}

	totals := ComputeTotals(lines)

	assert.Equal(t, 1, totals.TotalProduct)
	assert.True(t, totals.TotalPrice.Equal(decimal.NewFromInt(21)))
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil)

	assert.Equal(t, 0, totals.TotalProduct)
	assert.True(t, totals.TotalPrice.IsZero())
}

func TestApplyTotals(t *testing.T) {
	order := Order{
		Lines: []OrderLine{
			{ProductID: "p1", Quantity: 3, Price: decimal.NewFromFloat(2.50)},
			{ProductID: "p2", Quantity: 2, Price: decimal.NewFromInt(4)},
		},
	}

	order.ApplyTotals()

	assert.True(t, order.TotalPrice.Equal(decimal.NewFromFloat(15.50)),
		"expected total price 15.50, got %s", order.TotalPrice)
	assert.Equal(t, 2, order.TotalProduct)
}
