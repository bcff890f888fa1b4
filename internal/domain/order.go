package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "new"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
)

// OrderStatuses lists the statuses in lifecycle order.
var OrderStatuses = []OrderStatus{OrderStatusNew, OrderStatusPaid, OrderStatusDelivered}

// StatusOf derives the status from the server flags. Delivered wins over paid.
func StatusOf(paid, delivered bool) OrderStatus {
	switch {
	case delivered:
		return OrderStatusDelivered
	case paid:
		return OrderStatusPaid
	default:
		return OrderStatusNew
	}
}

// Next returns the following status and false when s is terminal or unknown.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusNew:
		return OrderStatusPaid, true
	case OrderStatusPaid:
		return OrderStatusDelivered, true
	default:
		return s, false
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s OrderStatus) Rank() int {
	for i, st := range OrderStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s.Rank() >= 0
}

func (s OrderStatus) String() string {
	return string(s)
}

// OrderRecord is an order exactly as GET /orders/all returns it.
type OrderRecord struct {
	ID          ID              `json:"id"`
	IsPaid      Flag            `json:"is_paid"`
	IsDelivered Flag            `json:"is_delivered"`
	OrderItems  json.RawMessage `json:"order_items"`
	TotalPrice  decimal.Decimal `json:"total_price"` // minor units
}

type OrderLineItem struct {
	ProductID ID
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is the locally annotated view of an OrderRecord.
type Order struct {
	ID          ID
	LineItems   []OrderLineItem
	TotalAmount decimal.Decimal
	Paid        bool
	Delivered   bool
	Status      OrderStatus
	Expanded    bool
	// ItemsErr is set when the line-item blob could not be decoded.
	ItemsErr error
}
