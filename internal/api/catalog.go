package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/fjod/storefront/internal/domain"
)

// Categories lists category names. The call is aborted after the configured
// categories timeout and then fails with domain.ErrTimeout.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.categoriesTimeout)
	defer cancel()

	var categories []string
	if err := c.do(ctx, http.MethodGet, "/products/categories", "", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	var products []domain.Product
	path := "/products/category/" + url.PathEscape(category)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}
