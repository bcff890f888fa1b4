// Package orders turns the server's order list into the model the order
// history screen is built from, and issues status updates.
package orders

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
)

var (
	ErrNoTransition  = fmt.Errorf("%w: order has no further status", domain.ErrValidation)
	ErrOrderNotFound = fmt.Errorf("%w: order not found", domain.ErrValidation)
	ErrStaleStatus   = fmt.Errorf("%w: order status has changed", domain.ErrValidation)
)

// TokenSource hands out the bearer token of the signed-in user.
type TokenSource interface {
	Token() (string, error)
}

// OrdersAPI is the part of the remote API the view model calls.
type OrdersAPI interface {
	ListOrders(ctx context.Context, token string) ([]domain.OrderRecord, error)
	UpdateOrder(ctx context.Context, token string, req api.UpdateOrderRequest) error
}

// Group is one status bucket of the order list.
type Group struct {
	Status domain.OrderStatus
	Orders []domain.Order
}

// ViewModel holds the orders of the last successful fetch. It has a single
// owner and is not safe for concurrent use.
type ViewModel struct {
	api    OrdersAPI
	tokens TokenSource
	logger *zap.Logger
	orders []domain.Order
}

func NewViewModel(ordersAPI OrdersAPI, tokens TokenSource, logger *zap.Logger) *ViewModel {
	return &ViewModel{
		api:    ordersAPI,
		tokens: tokens,
		logger: logger,
	}
}

// Refresh replaces the model with a freshly fetched order list. Expanded
// flags are reset. A line-item blob that fails to decode is recorded on its
// order and does not stop the others. If the fetch fails the previous list
// is kept.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	token, err := vm.tokens.Token()
	if err != nil {
		return err
	}

	records, err := vm.api.ListOrders(ctx, token)
	if err != nil {
		vm.logger.Warn("failed to fetch orders", zap.Error(err))
		return fmt.Errorf("fetch orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, vm.materialize(rec))
	}
	vm.orders = orders

	vm.logger.Debug("orders refreshed", zap.Int("count", len(orders)))
	return nil
}

func (vm *ViewModel) materialize(rec domain.OrderRecord) domain.Order {
	o := domain.Order{
		ID:          rec.ID,
		TotalAmount: rec.TotalPrice.Shift(-2),
		Paid:        bool(rec.IsPaid),
		Delivered:   bool(rec.IsDelivered),
		Status:      domain.StatusOf(bool(rec.IsPaid), bool(rec.IsDelivered)),
	}

	items, err := ParseLineItems(rec.OrderItems)
	if err != nil {
		vm.logger.Warn("failed to parse order items",
			zap.String("order_id", rec.ID.String()),
			zap.Error(err),
		)
		o.ItemsErr = err
		return o
	}
	o.LineItems = items
	return o
}

// Reset drops the loaded orders, for example after sign-out.
func (vm *ViewModel) Reset() {
	vm.orders = nil
}

// Orders returns a copy of the current list in fetch order.
func (vm *ViewModel) Orders() []domain.Order {
	out := make([]domain.Order, len(vm.orders))
	copy(out, vm.orders)
	return out
}

// Order returns the order with the given id.
func (vm *ViewModel) Order(id domain.ID) (domain.Order, bool) {
	if i := vm.indexOf(id); i >= 0 {
		return vm.orders[i], true
	}
	return domain.Order{}, false
}

// Advance asks the server to move the order one step past current and, once
// accepted, applies the step locally. current must match the order's local
// status; otherwise nothing is sent.
func (vm *ViewModel) Advance(ctx context.Context, id domain.ID, current domain.OrderStatus) error {
	token, err := vm.tokens.Token()
	if err != nil {
		return err
	}

	next, ok := current.Next()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoTransition, current)
	}
	i := vm.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	if vm.orders[i].Status != current {
		return fmt.Errorf("%w: order %s is %s, not %s", ErrStaleStatus, id, vm.orders[i].Status, current)
	}

	req := api.UpdateOrderRequest{OrderID: id, IsPaid: 1}
	if next == domain.OrderStatusDelivered {
		req.IsDelivered = 1
	}
	if err := vm.api.UpdateOrder(ctx, token, req); err != nil {
		vm.logger.Warn("failed to update order",
			zap.String("order_id", id.String()),
			zap.String("from", current.String()),
			zap.Error(err),
		)
		return fmt.Errorf("update order %s: %w", id, err)
	}

	o := &vm.orders[i]
	o.Status = next
	o.Paid = true
	o.Delivered = next == domain.OrderStatusDelivered

	vm.logger.Info("order advanced", zap.String("order_id", id.String()), zap.String("status", next.String()))
	return nil
}

// ToggleExpand flips the expanded flag of one order and reports whether the
// order exists.
func (vm *ViewModel) ToggleExpand(id domain.ID) bool {
	i := vm.indexOf(id)
	if i < 0 {
		return false
	}
	vm.orders[i].Expanded = !vm.orders[i].Expanded
	return true
}

// Grouped buckets the orders by status in lifecycle order. Empty buckets are
// left out.
func (vm *ViewModel) Grouped() []Group {
	var groups []Group
	for _, status := range domain.OrderStatuses {
		var members []domain.Order
		for _, o := range vm.orders {
			if o.Status == status {
				members = append(members, o)
			}
		}
		if len(members) > 0 {
			groups = append(groups, Group{Status: status, Orders: members})
		}
	}
	return groups
}

func (vm *ViewModel) indexOf(id domain.ID) int {
	for i, o := range vm.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}
