// Package app wires the storefront state holders together. The shell owns a
// single App and every action goes through it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/auth"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/session"
)

var ErrUnknownProduct = fmt.Errorf("%w: unknown product, list a category first", domain.ErrValidation)

// Backend is the remote API as the app uses it. *api.Client implements it.
type Backend interface {
	auth.UsersAPI
	orders.OrdersAPI
	checkout.OrderPlacer
	Categories(ctx context.Context) ([]string, error)
	ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error)
}

var _ Backend = (*api.Client)(nil)

type App struct {
	Auth     *auth.Context
	Cart     *cart.Store
	Orders   *orders.ViewModel
	Checkout *checkout.Service

	backend  Backend
	products []domain.Product
	logger   *zap.Logger
}

func New(backend Backend, sessions session.Store, logger *zap.Logger) *App {
	authCtx := auth.NewContext(backend, sessions, logger.Named("auth"))
	cartStore := cart.NewStore(logger.Named("cart"))

	return &App{
		Auth:     authCtx,
		Cart:     cartStore,
		Orders:   orders.NewViewModel(backend, authCtx, logger.Named("orders")),
		Checkout: checkout.NewService(backend, authCtx, cartStore, logger.Named("checkout")),
		backend:  backend,
		logger:   logger,
	}
}

// Start restores a persisted session, if any.
func (a *App) Start(ctx context.Context) error {
	ok, err := a.Auth.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		a.logger.Info("no saved session")
	}
	return nil
}

func (a *App) Categories(ctx context.Context) ([]string, error) {
	categories, err := a.backend.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return categories, nil
}

// Products lists a category and remembers the result so products can be
// picked by id afterwards.
func (a *App) Products(ctx context.Context, category string) ([]domain.Product, error) {
	products, err := a.backend.ProductsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	a.products = products
	return products, nil
}

// Product looks up a product from the last listing.
func (a *App) Product(id domain.ID) (domain.Product, error) {
	for _, p := range a.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
}

func (a *App) AddToCart(id domain.ID) (domain.Product, error) {
	p, err := a.Product(id)
	if err != nil {
		return domain.Product{}, err
	}
	a.Cart.Add(p)
	return p, nil
}

// SignOut ends the session and forgets the user's orders.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.Auth.SignOut(ctx); err != nil {
		return err
	}
	a.Orders.Reset()
	return nil
}

// Badge is the number shown on the cart tab.
func (a *App) Badge() int {
	return a.Cart.TotalQuantity()
}
