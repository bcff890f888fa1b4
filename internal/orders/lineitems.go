package orders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

var ErrMalformedItems = errors.New("malformed order items")

type wireLineItem struct {
	ProdID   domain.ID       `json:"prodID"`
	Quantity quantity        `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// quantity accepts a whole number sent either as a JSON number or as a string.
type quantity int

func (q *quantity) UnmarshalJSON(b []byte) error {
	raw := string(bytes.TrimSpace(b))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("quantity %s: %w", b, err)
	}
	*q = quantity(n)
	return nil
}

// ParseLineItems decodes the serialized order_items blob. The server sends it
// either as a JSON string holding an array or as the array itself.
func ParseLineItems(blob json.RawMessage) ([]domain.OrderLineItem, error) {
	raw := bytes.TrimSpace(blob)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: empty", ErrMalformedItems)
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedItems, err)
		}
		raw = bytes.TrimSpace([]byte(s))
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: not a list", ErrMalformedItems)
	}

	var wire []wireLineItem
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedItems, err)
	}

	items := make([]domain.OrderLineItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, domain.OrderLineItem{
			ProductID: w.ProdID,
			Quantity:  int(w.Quantity),
			UnitPrice: w.Price,
		})
	}
	return items, nil
}
