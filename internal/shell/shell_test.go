package shell

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/api/apitest"
	"github.com/fjod/storefront/internal/app"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/session"
)

func newTestShell(t *testing.T) (*Shell, *app.App, *apitest.Server, *bytes.Buffer) {
	t.Helper()
	srv := apitest.New(t)
	srv.AddProduct("men's clothing", domain.Product{
		ID: "1", Title: "Backpack", Price: decimal.RequireFromString("109.95"),
		Description: "Fits 15 inch laptops", Rating: domain.Rating{Rate: 3.9, Count: 120},
	})
	srv.AddProduct("men's clothing", domain.Product{ID: "2", Title: "T-Shirt", Price: decimal.RequireFromString("22.3")})
	srv.AddUser("Ada", "ada@example.com", "pw")

	client := api.NewClient(api.Config{BaseURL: srv.URL}, zaptest.NewLogger(t))
	a := app.New(client, session.NewMemoryStore(), zaptest.NewLogger(t))
	out := &bytes.Buffer{}
	return New(a, out, zaptest.NewLogger(t)), a, srv, out
}

func run(t *testing.T, s *Shell, lines ...string) {
	t.Helper()
	require.NoError(t, s.Run(context.Background(), strings.NewReader(strings.Join(lines, "\n"))))
}

func TestShell_ShoppingFlow(t *testing.T) {
	s, a, srv, out := newTestShell(t)

	run(t, s,
		"categories",
		"products men's clothing",
		"show 1",
		"add 1",
		"add 1",
		"add 2",
		"dec 2",
		"cart",
		"signin ada@example.com pw",
		"checkout",
		"orders",
	)

	text := out.String()
	assert.Contains(t, text, "men's clothing")
	assert.Contains(t, text, "Backpack")
	assert.Contains(t, text, "Fits 15 inch laptops")
	assert.Contains(t, text, "added T-Shirt to cart")
	assert.Contains(t, text, "$219.90")
	assert.Contains(t, text, "storefront [cart 2]> ")
	assert.Contains(t, text, "logged in as Ada")
	assert.Contains(t, text, "order placed: 2 items, $219.90")
	assert.Contains(t, text, "NEW")
	assert.Contains(t, text, "#1  $219.90")
	assert.NotContains(t, text, "!")

	assert.True(t, a.Cart.IsEmpty())
	require.Len(t, srv.Orders(), 1)
}

func TestShell_OrderLifecycle(t *testing.T) {
	s, _, srv, out := newTestShell(t)
	id := srv.AddOrder("ada@example.com", apitest.Order{
		OrderItems: `[{"prodID":1,"quantity":1,"price":109.95}]`,
		TotalPrice: 10995,
	})

	run(t, s,
		"signin ada@example.com pw",
		"orders",
		"toggle 1",
		"receive 1",
		"pay 1",
		"receive 1",
		"pay 1",
	)

	text := out.String()
	assert.Contains(t, text, "product 1 x1 @ $109.95")
	assert.Contains(t, text, "! Validation Error: Order 1 is new")
	assert.Contains(t, text, "! Validation Error: Order 1 is delivered")
	assert.Equal(t, 2, strings.Count(text, "order status updated"))

	stored, ok := srv.Order(id)
	require.True(t, ok)
	assert.Equal(t, 1, stored.IsPaid)
	assert.Equal(t, 1, stored.IsDelivered)
}

func TestShell_ErrorsBecomeNotices(t *testing.T) {
	s, _, srv, out := newTestShell(t)
	srv.Fail("/products/categories", http.StatusServiceUnavailable)

	run(t, s,
		"orders",
		"checkout",
		"add 1",
		"categories",
		"signin ada@example.com wrong",
		"signup Bob bob-at-example pw",
		"profile name=Bob",
		"whoami",
		"frobnicate",
		"show",
	)

	text := out.String()
	assert.Contains(t, text, "! Not Logged In: Please log in to continue.")
	assert.Contains(t, text, "! Validation Error: Unknown product, list a category first")
	assert.Contains(t, text, "! Error: injected failure")
	assert.Contains(t, text, "! Error: wrong email or password")
	assert.Contains(t, text, "! Validation Error: Please enter a valid email address")
	assert.Contains(t, text, `unknown command "frobnicate"`)
	assert.Contains(t, text, "usage: show <id>")
}

func TestShell_AccountCommands(t *testing.T) {
	s, a, srv, out := newTestShell(t)

	run(t, s,
		"signup Grace grace@example.com secret",
		"whoami",
		"profile name=Hopper",
		"profile",
		"profile nickname=x",
		"signout",
		"whoami",
	)

	text := out.String()
	assert.Contains(t, text, "signed up as Grace")
	assert.Contains(t, text, "Grace <grace@example.com>")
	assert.Contains(t, text, "profile updated")
	assert.Contains(t, text, "! Validation Error: Enter a new name or password")
	assert.Contains(t, text, "usage: profile [name=<n>] [password=<p>]")
	assert.Contains(t, text, "signed out")
	assert.Equal(t, "Hopper", srv.UserName("grace@example.com"))
	assert.False(t, a.Auth.SignedIn())
}

func TestShell_QuitStopsReading(t *testing.T) {
	s, a, _, _ := newTestShell(t)

	run(t, s, "products men's clothing", "quit", "add 1")

	assert.True(t, a.Cart.IsEmpty())
}

func TestShell_Help(t *testing.T) {
	s, _, _, out := newTestShell(t)

	assert.True(t, s.Execute(context.Background(), "help"))

	for _, usage := range []string{"categories", "products <category>", "checkout", "receive <id>", "quit"} {
		assert.Contains(t, out.String(), usage)
	}
}

func TestShell_BlankLinesIgnored(t *testing.T) {
	s, _, _, out := newTestShell(t)

	assert.True(t, s.Execute(context.Background(), "   "))
	assert.Empty(t, out.String())
	assert.False(t, s.Execute(context.Background(), "EXIT"))
}

func TestShell_RunStopsWhenContextCancelled(t *testing.T) {
	s, _, _, _ := newTestShell(t)
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, pr) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run kept waiting for input after the context was cancelled")
	}
}

func TestShell_RunReturnsReadError(t *testing.T) {
	s, _, _, _ := newTestShell(t)
	pr, pw := io.Pipe()
	boom := io.ErrUnexpectedEOF
	pw.CloseWithError(boom)

	err := s.Run(context.Background(), pr)

	assert.ErrorIs(t, err, boom)
}
