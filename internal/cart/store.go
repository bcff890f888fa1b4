// Package cart holds the in-memory shopping cart for one session.
package cart

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/domain"
)

// Store is the authoritative cart. It has a single owner and is not safe for
// concurrent use.
type Store struct {
	items  []domain.CartLineItem
	logger *zap.Logger
}

func NewStore(logger *zap.Logger) *Store {
	return &Store{logger: logger}
}

// Add increments the line item for p, or appends a new one with quantity 1.
func (s *Store) Add(p domain.Product) {
	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity++
		s.logger.Debug("cart item incremented", zap.String("product_id", p.ID.String()), zap.Int("quantity", s.items[i].Quantity))
		return
	}

	s.items = append(s.items, domain.CartLineItem{
		ProductID: p.ID,
		Title:     p.Title,
		Image:     p.Image,
		UnitPrice: p.Price,
		Quantity:  1,
	})
	s.logger.Debug("cart item added", zap.String("product_id", p.ID.String()))
}

// Increase adds one to the quantity of productID. Unknown ids are ignored.
func (s *Store) Increase(productID domain.ID) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items[i].Quantity++
	s.logger.Debug("cart item incremented", zap.String("product_id", productID.String()), zap.Int("quantity", s.items[i].Quantity))
}

// Decrease removes one from the quantity of productID and drops the line item
// when it reaches zero. Unknown ids are ignored.
func (s *Store) Decrease(productID domain.ID) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items[i].Quantity--
	if s.items[i].Quantity > 0 {
		s.logger.Debug("cart item decremented", zap.String("product_id", productID.String()), zap.Int("quantity", s.items[i].Quantity))
		return
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	s.logger.Debug("cart item removed", zap.String("product_id", productID.String()))
}

func (s *Store) Clear() {
	s.items = nil
	s.logger.Debug("cart cleared")
}

// Items returns a copy of the line items in first-add order.
func (s *Store) Items() []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the line item for productID.
func (s *Store) Item(productID domain.ID) (domain.CartLineItem, bool) {
	i := s.indexOf(productID)
	if i < 0 {
		return domain.CartLineItem{}, false
	}
	return s.items[i], true
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return len(s.items) == 0
}

func (s *Store) TotalQuantity() int {
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

func (s *Store) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) indexOf(productID domain.ID) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}
