package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Version   int             `json:"version"`
}

type Order struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Lines        []OrderLine     `json:"lines"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	TotalProduct int             `json:"total_product"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// OrderLine is one product entry within an order. Price is the unit price
// captured when the line was written, independent of the product's live price.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderTotals struct {
	TotalPrice   decimal.Decimal `json:"total_price"`
	TotalProduct int             `json:"total_product"`
}

// ComputeTotals derives display totals from an order's lines. TotalProduct
// counts line entries, not summed quantities.
func ComputeTotals(lines []OrderLine) OrderTotals {
	totals := OrderTotals{TotalPrice: decimal.Zero, TotalProduct: len(lines)}
	for _, line := range lines {
		subtotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		totals.TotalPrice = totals.TotalPrice.Add(subtotal)
	}
	return totals
}

// ApplyTotals fills the order's derived total fields from its lines.
func (o *Order) ApplyTotals() {
	totals := ComputeTotals(o.Lines)
	o.TotalPrice = totals.TotalPrice
	o.TotalProduct = totals.TotalProduct
}
