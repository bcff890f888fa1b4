// Package api is the HTTP client for the remote storefront service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/fjod/storefront/pkg/logger"
)

const (
	defaultCategoriesTimeout = 10 * time.Second
	maxResponseBodySize      = 1 << 20 // 1MB
)

type Config struct {
	BaseURL string
	// CategoriesTimeout bounds GET /products/categories. No other call has a
	// client-side deadline.
	CategoriesTimeout time.Duration
	Breaker           circuitbreaker.Settings
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

type Client struct {
	baseURL           string
	categoriesTimeout time.Duration
	http              *http.Client
	breaker           *gobreaker.CircuitBreaker[response]
	logger            *zap.Logger
}

type response struct {
	status int
	body   []byte
}

// StatusError is returned for non-2xx answers. It matches
// domain.ErrInvalidResponse with errors.Is.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrInvalidResponse
}

var errServerFailure = errors.New("server failure")

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.CategoriesTimeout <= 0 {
		cfg.CategoriesTimeout = defaultCategoriesTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		categoriesTimeout: cfg.CategoriesTimeout,
		http:              &http.Client{Transport: otelhttp.NewTransport(transport)},
		breaker:           circuitbreaker.New[response]("storefront-api", cfg.Breaker, logger),
		logger:            logger,
	}
}

// do sends one request and decodes a 2xx JSON body into out when out is not
// nil. Failures are never retried.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log := logger.FromContext(ctx, c.logger).With(
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID))
	start := time.Now()

	res, err := c.breaker.Execute(func() (response, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		if err != nil {
			return response{}, err
		}
		r := response{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, errServerFailure
		}
		return r, nil
	})
	if err != nil && !errors.Is(err, errServerFailure) {
		kind := classify(err)
		log.Warn("request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", kind, method, path, err)
	}

	log.Debug("request completed", zap.Int("status", res.status), zap.Duration("elapsed", time.Since(start)))

	if res.status < 200 || res.status >= 300 {
		msg := strings.TrimSpace(string(res.body))
		if msg == "" {
			msg = http.StatusText(res.status)
		}
		return &StatusError{Method: method, Path: path, StatusCode: res.status, Body: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", domain.ErrInvalidResponse, path, err)
	}
	return nil
}

func classify(err error) error {
	switch {
	case circuitbreaker.IsOpen(err):
		return domain.ErrNetworkUnreachable
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrTimeout
	default:
		return domain.ErrNetworkUnreachable
	}
}
