package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fjod/storefront/internal/api/apitest"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	return NewClient(Config{
		BaseURL:           baseURL,
		CategoriesTimeout: time.Second,
		Breaker:           circuitbreaker.Settings{MaxFailures: 3, OpenTimeout: time.Minute},
	}, zaptest.NewLogger(t))
}

func TestCategories_Success(t *testing.T) {
	srv := apitest.New(t)
	srv.AddProduct("electronics", domain.Product{ID: "1", Title: "Laptop", Price: decimal.NewFromInt(999)})
	srv.AddProduct("jewelery", domain.Product{ID: "2", Title: "Ring", Price: decimal.NewFromInt(50)})
	client := newTestClient(t, srv.URL)

	categories, err := client.Categories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "jewelery"}, categories)

	req, ok := srv.LastRequest("/products/categories")
	require.True(t, ok)
	assert.NotEmpty(t, req.RequestID)
	assert.Empty(t, req.Authorization)
}

func TestCategories_TimesOut(t *testing.T) {
	srv := apitest.New(t)
	srv.Delay("/products/categories", 500*time.Millisecond)
	client := NewClient(Config{BaseURL: srv.URL, CategoriesTimeout: 50 * time.Millisecond}, zaptest.NewLogger(t))

	_, err := client.Categories(context.Background())

	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestProductsByCategory_EscapesCategory(t *testing.T) {
	srv := apitest.New(t)
	srv.AddProduct("men's clothing", domain.Product{
		ID:          "3",
		Title:       "Jacket",
		Price:       decimal.RequireFromString("55.99"),
		Image:       "https://example.com/jacket.jpg",
		Description: "warm",
		Rating:      domain.Rating{Rate: 4.5, Count: 120},
	})
	client := newTestClient(t, srv.URL)

	products, err := client.ProductsByCategory(context.Background(), "men's clothing")

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, domain.ID("3"), products[0].ID)
	assert.Equal(t, "55.99", products[0].Price.String())
	assert.Equal(t, 120, products[0].Rating.Count)
}

func TestDo_NonSuccessIsInvalidResponse(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("/products/categories", http.StatusBadRequest)
	client := newTestClient(t, srv.URL)

	_, err := client.Categories(context.Background())

	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "injected failure", statusErr.Body)
}

func TestDo_UnparsableBodyIsInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	_, err := client.Categories(context.Background())

	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestDo_ClosedServerIsNetworkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := newTestClient(t, url)

	_, err := client.ProductsByCategory(context.Background(), "any")

	assert.ErrorIs(t, err, domain.ErrNetworkUnreachable)
}

func TestDo_BreakerOpensOnServerFailures(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("/products/category/x", http.StatusInternalServerError)
	client := NewClient(Config{
		BaseURL: srv.URL,
		Breaker: circuitbreaker.Settings{MaxFailures: 2, OpenTimeout: time.Minute},
	}, zaptest.NewLogger(t))

	for i := 0; i < 2; i++ {
		_, err := client.ProductsByCategory(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	}

	_, err := client.ProductsByCategory(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrNetworkUnreachable)

	hits := 0
	for _, r := range srv.Requests() {
		if r.Path == "/products/category/x" {
			hits++
		}
	}
	assert.Equal(t, 2, hits, "no retries and no calls while open")
}

func TestSignIn_Success(t *testing.T) {
	srv := apitest.New(t)
	id := srv.AddUser("Ada", "ada@example.com", "secret")
	client := newTestClient(t, srv.URL)

	session, err := client.SignIn(context.Background(), SignInRequest{Email: "ada@example.com", Password: "secret"})

	require.NoError(t, err)
	assert.Equal(t, srv.TokenFor("ada@example.com"), session.Token)
	assert.Equal(t, "Ada", session.Name)
	assert.Equal(t, "ada@example.com", session.Email)
	assert.Equal(t, domain.ID("1"), session.UserID)
	assert.Equal(t, 1, id)
}

func TestSignIn_WrongPassword(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret")
	client := newTestClient(t, srv.URL)

	_, err := client.SignIn(context.Background(), SignInRequest{Email: "ada@example.com", Password: "nope"})

	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestSignIn_MissingFields(t *testing.T) {
	tests := map[string]string{
		"status not OK": `{"status":"error","token":"t","id":1,"name":"n","email":"e"}`,
		"missing token": `{"status":"OK","id":1,"name":"n","email":"e"}`,
		"missing id":    `{"status":"OK","token":"t","name":"n","email":"e"}`,
		"missing name":  `{"status":"OK","token":"t","id":1,"email":"e"}`,
		"not json":      `welcome!`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			client := newTestClient(t, srv.URL)

			_, err := client.SignIn(context.Background(), SignInRequest{Email: "e", Password: "p"})

			assert.ErrorIs(t, err, domain.ErrInvalidResponse)
		})
	}
}

func TestSignUp_Conflict(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret")
	client := newTestClient(t, srv.URL)

	err := client.SignUp(context.Background(), SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "x"})

	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.ErrorContains(t, err, "user already exists")
}

func TestUpdateUser_OmitsEmptyFields(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret")
	client := newTestClient(t, srv.URL)

	err := client.UpdateUser(context.Background(), UpdateUserRequest{ID: "1", Name: "Grace"})

	require.NoError(t, err)
	req, _ := srv.LastRequest("/users/update")
	assert.JSONEq(t, `{"id":1,"name":"Grace"}`, req.Body)
	assert.Equal(t, "Grace", srv.UserName("ada@example.com"))
}

func TestListOrders_SendsBearerToken(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret")
	srv.AddOrder("ada@example.com", apitest.Order{OrderItems: `[{"prodID":1,"price":10,"quantity":2}]`, TotalPrice: 2000})
	token := srv.TokenFor("ada@example.com")
	client := newTestClient(t, srv.URL)

	records, err := client.ListOrders(context.Background(), token)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2000", records[0].TotalPrice.String())
	req, _ := srv.LastRequest("/orders/all")
	assert.Equal(t, "Bearer "+token, req.Authorization)
}

func TestListOrders_RejectedToken(t *testing.T) {
	srv := apitest.New(t)
	client := newTestClient(t, srv.URL)

	_, err := client.ListOrders(context.Background(), "bogus")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestListOrders_MissingOrderList(t *testing.T) {
	for _, body := range []string{`{}`, `{"orders":null}`, `{"orders":"none"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := newTestClient(t, srv.URL)

		_, err := client.ListOrders(context.Background(), "t")

		assert.ErrorIs(t, err, domain.ErrInvalidResponse, body)
		srv.Close()
	}
}

func TestNewOrder_Body(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret")
	client := newTestClient(t, srv.URL)

	err := client.NewOrder(context.Background(), srv.TokenFor("ada@example.com"), NewOrderRequest{
		Items: []NewOrderItem{
			{ProdID: "1", Price: json.Number("10.5"), Quantity: 2},
			{ProdID: "2", Price: json.Number("5"), Quantity: 1},
		},
	})

	require.NoError(t, err)
	req, _ := srv.LastRequest("/orders/neworder")
	assert.JSONEq(t, `{"items":[{"prodID":1,"price":10.5,"quantity":2},{"prodID":2,"price":5,"quantity":1}]}`, req.Body)

	orders := srv.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 2600, orders[0].TotalPrice)
}

func TestUpdateOrder_Body(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("Ada", "ada@example.com", "secret")
	id := srv.AddOrder("ada@example.com", apitest.Order{OrderItems: "[]"})
	client := newTestClient(t, srv.URL)

	err := client.UpdateOrder(context.Background(), srv.TokenFor("ada@example.com"), UpdateOrderRequest{
		OrderID: domain.ID("1"), IsPaid: 1, IsDelivered: 0,
	})

	require.NoError(t, err)
	req, _ := srv.LastRequest("/orders/updateorder")
	assert.JSONEq(t, `{"orderID":1,"isPaid":1,"isDelivered":0}`, req.Body)
	o, _ := srv.Order(id)
	assert.Equal(t, 1, o.IsPaid)
}
