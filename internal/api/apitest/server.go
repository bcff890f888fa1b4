// Package apitest runs an in-process fake of the storefront REST API for
// tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/fjod/storefront/internal/domain"
)

// Order is a stored order. OrderItems is sent verbatim as the serialized
// line-item blob.
type Order struct {
	ID          int
	UserID      int
	IsPaid      int
	IsDelivered int
	OrderItems  string
	TotalPrice  int
}

// RecordedRequest is a request the server received.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

type user struct {
	id       int
	name     string
	email    string
	password string
	token    string
}

type Server struct {
	*httptest.Server

	mu          sync.Mutex
	categories  []string
	products    map[string][]domain.Product
	users       map[string]*user
	orders      []*Order
	failures    map[string]int
	latency     map[string]time.Duration
	requests    []RecordedRequest
	nextUserID  int
	nextOrderID int
}

// New starts a server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		products:    map[string][]domain.Product{},
		users:       map[string]*user{},
		failures:    map[string]int{},
		latency:     map[string]time.Duration{},
		nextUserID:  1,
		nextOrderID: 1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.inject)

	r.Route("/products", func(r chi.Router) {
		r.Get("/categories", s.getCategories)
		r.Get("/category/{category}", s.getProducts)
	})
	r.Route("/users", func(r chi.Router) {
		r.Post("/signup", s.signUp)
		r.Post("/signin", s.signIn)
		r.Post("/update", s.updateUser)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/all", s.listOrders)
		r.Post("/neworder", s.newOrder)
		r.Post("/updateorder", s.updateOrder)
	})
	return r
}

// AddProduct registers p under category. Categories are listed in first-add
// order.
func (s *Server) AddProduct(category string, p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[category]; !ok {
		s.categories = append(s.categories, category)
	}
	p.Category = category
	s.products[category] = append(s.products[category], p)
}

// AddUser registers a user and returns its id.
func (s *Server) AddUser(name, email, password string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(name, email, password).id
}

// TokenFor returns the bearer token the server issues for email.
func (s *Server) TokenFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return ""
	}
	return u.token
}

// UserName returns the stored name of the user.
func (s *Server) UserName(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u.name
	}
	return ""
}

// AddOrder stores o for the user with the given email and returns its id.
func (s *Server) AddOrder(email string, o Order) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[email]
	if u != nil {
		o.UserID = u.id
	}
	o.ID = s.nextOrderID
	s.nextOrderID++
	s.orders = append(s.orders, &o)
	return o.ID
}

// Order returns a copy of the stored order.
func (s *Server) Order(id int) (Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return *o, true
		}
	}
	return Order{}, false
}

// Orders returns copies of all stored orders.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

// Fail makes every request to path answer with status until Recover.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// Delay holds requests to path for d before answering.
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency[path] = d
}

func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request to path.
func (s *Server) LastRequest(path string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == path {
			return s.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

func (s *Server) addUserLocked(name, email, password string) *user {
	u := &user{
		id:       s.nextUserID,
		name:     name,
		email:    email,
		password: password,
		token:    fmt.Sprintf("token-%d", s.nextUserID),
	}
	s.nextUserID++
	s.users[email] = u
	return u
}

func (s *Server) userByToken(token string) *user {
	for _, u := range s.users {
		if u.token == token {
			return u
		}
	}
	return nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          string(body),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, failing := s.failures[r.URL.Path]
		delay := s.latency[r.URL.Path]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		u := s.userByToken(token)
		s.mu.Unlock()
		if token == "" || u == nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	categories := append([]string{}, s.categories...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) getProducts(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if unescaped, err := url.PathUnescape(category); err == nil {
		category = unescaped
	}
	s.mu.Lock()
	products := append([]domain.Product{}, s.products[category]...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, products)
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "missing fields")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		respondError(w, http.StatusConflict, "user already exists")
		return
	}
	s.addUserLocked(req.Name, req.Email, req.Password)
	respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.password != req.Password {
		respondError(w, http.StatusUnauthorized, "wrong email or password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status": "OK",
		"token":  u.token,
		"id":     u.id,
		"name":   u.name,
		"email":  u.email,
	})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.id != req.ID {
			continue
		}
		if req.Name != "" {
			u.name = req.Name
		}
		if req.Password != "" {
			u.password = req.Password
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
		return
	}
	respondError(w, http.StatusNotFound, "user not found")
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.userByToken(bearer(r))
	orders := make([]map[string]any, 0)
	for _, o := range s.orders {
		if o.UserID != u.id {
			continue
		}
		orders = append(orders, map[string]any{
			"id":           o.ID,
			"is_paid":      o.IsPaid,
			"is_delivered": o.IsDelivered,
			"order_items":  o.OrderItems,
			"total_price":  o.TotalPrice,
		})
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"status": "OK", "orders": orders})
}

func (s *Server) newOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []struct {
			ProdID   int             `json:"prodID"`
			Price    decimal.Decimal `json:"price"`
			Quantity int             `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "invalid order")
		return
	}

	total := decimal.Zero
	for _, it := range req.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	items, _ := json.Marshal(req.Items)

	s.mu.Lock()
	u := s.userByToken(bearer(r))
	o := &Order{
		ID:         s.nextOrderID,
		UserID:     u.id,
		OrderItems: string(items),
		TotalPrice: int(total.Shift(2).Round(0).IntPart()),
	}
	s.nextOrderID++
	s.orders = append(s.orders, o)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"status": "OK", "id": o.ID})
}

func (s *Server) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID     int `json:"orderID"`
		IsPaid      int `json:"isPaid"`
		IsDelivered int `json:"isDelivered"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByToken(bearer(r))
	for _, o := range s.orders {
		if o.ID == req.OrderID && o.UserID == u.id {
			o.IsPaid = req.IsPaid
			o.IsDelivered = req.IsDelivered
			respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
			return
		}
	}
	respondError(w, http.StatusNotFound, "order not found")
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"status": "error", "message": message})
}
