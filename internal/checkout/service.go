// Package checkout turns the cart into a placed order.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
)

var ErrEmptyCart = fmt.Errorf("%w: cart is empty, nothing to checkout", domain.ErrValidation)

type TokenSource interface {
	Token() (string, error)
}

// OrderPlacer is the part of the remote API checkout calls.
type OrderPlacer interface {
	NewOrder(ctx context.Context, token string, req api.NewOrderRequest) error
}

// Snapshot is what the cart held when the order was placed.
type Snapshot struct {
	Items         []domain.CartLineItem
	TotalQuantity int
	TotalPrice    decimal.Decimal
}

type Service struct {
	orders OrderPlacer
	tokens TokenSource
	cart   *cart.Store
	logger *zap.Logger
}

func NewService(orders OrderPlacer, tokens TokenSource, cartStore *cart.Store, logger *zap.Logger) *Service {
	return &Service{
		orders: orders,
		tokens: tokens,
		cart:   cartStore,
		logger: logger,
	}
}

// Checkout places an order for the current cart contents and empties the
// cart once the server accepts it. On failure the cart is left as it was.
func (s *Service) Checkout(ctx context.Context) (Snapshot, error) {
	token, err := s.tokens.Token()
	if err != nil {
		return Snapshot{}, err
	}
	if s.cart.IsEmpty() {
		return Snapshot{}, ErrEmptyCart
	}

	snapshot := Snapshot{
		Items:         s.cart.Items(),
		TotalQuantity: s.cart.TotalQuantity(),
		TotalPrice:    s.cart.TotalPrice(),
	}

	req := api.NewOrderRequest{Items: make([]api.NewOrderItem, 0, len(snapshot.Items))}
	for _, item := range snapshot.Items {
		req.Items = append(req.Items, api.NewOrderItem{
			ProdID:   item.ProductID,
			Price:    json.Number(item.UnitPrice.String()),
			Quantity: item.Quantity,
		})
	}

	if err := s.orders.NewOrder(ctx, token, req); err != nil {
		s.logger.Warn("checkout failed", zap.Int("items", len(req.Items)), zap.Error(err))
		return Snapshot{}, fmt.Errorf("place order: %w", err)
	}

	s.cart.Clear()
	s.logger.Info("order placed",
		zap.Int("items", len(snapshot.Items)),
		zap.Int("quantity", snapshot.TotalQuantity),
		zap.String("total", snapshot.TotalPrice.StringFixed(2)),
	)
	return snapshot, nil
}
