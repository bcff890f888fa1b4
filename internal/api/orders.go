package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/storefront/internal/domain"
)

type NewOrderItem struct {
	ProdID   domain.ID   `json:"prodID"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type NewOrderRequest struct {
	Items []NewOrderItem `json:"items"`
}

type UpdateOrderRequest struct {
	OrderID     domain.ID `json:"orderID"`
	IsPaid      int       `json:"isPaid"`
	IsDelivered int       `json:"isDelivered"`
}

type listOrdersResponse struct {
	Orders json.RawMessage `json:"orders"`
}

// ListOrders returns the raw order records of the signed-in user.
func (c *Client) ListOrders(ctx context.Context, token string) ([]domain.OrderRecord, error) {
	var resp listOrdersResponse
	if err := c.do(ctx, http.MethodGet, "/orders/all", token, nil, &resp); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(resp.Orders)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: order list missing from response", domain.ErrInvalidResponse)
	}

	var records []domain.OrderRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: decode orders: %w", domain.ErrInvalidResponse, err)
	}
	return records, nil
}

func (c *Client) NewOrder(ctx context.Context, token string, req NewOrderRequest) error {
	return c.do(ctx, http.MethodPost, "/orders/neworder", token, req, nil)
}

func (c *Client) UpdateOrder(ctx context.Context, token string, req UpdateOrderRequest) error {
	return c.do(ctx, http.MethodPost, "/orders/updateorder", token, req, nil)
}
