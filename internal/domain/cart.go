package domain

import "github.com/shopspring/decimal"

// CartLineItem is one product in the cart. Display attributes are copied from
// the catalog when the product is first added and are not refreshed.
type CartLineItem struct {
	ProductID ID
	Title     string
	Image     string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns Quantity × UnitPrice.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
