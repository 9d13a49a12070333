// Package supabase stores recurring expenses and transactions in Supabase
// through its PostgREST API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/budget-calendar-go/internal/domain"
	"github.com/boddenberg/budget-calendar-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const (
	tableRecurring    = "recurring_expenses"
	tableTransactions = "budget_transactions"
)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if cb == nil {
		cb = resilience.NewCircuitBreaker("supabase")
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// call runs fn behind the bulkhead, the circuit breaker and retries, and
// reports failures other than not-found as ErrExternalService.
func call[T any](ctx context.Context, c *Client, service string, fn func() (T, error)) (T, error) {
	var out T
	err := c.bulkhead.Do(ctx, func() error {
		var err error
		out, err = resilience.Execute(c.cb, func() (T, error) {
			var v T
			err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				var err error
				v, err = fn()
				return err
			})
			return v, err
		})
		return err
	})
	if err != nil {
		var zero T
		var notFound *domain.ErrNotFound
		var open *domain.ErrCircuitOpen
		if errors.As(err, &notFound) || errors.As(err, &open) {
			return zero, err
		}
		return zero, &domain.ErrExternalService{Service: "supabase/" + service, Err: err}
	}
	return out, nil
}

// doRequest executes an authenticated request to Supabase PostgREST.
// Client errors (4xx) are not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, prefer string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(data)),
		)
		err := fmt.Errorf("supabase %s %s returned status %d: %s", method, path, resp.StatusCode, string(data))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(err)
		}
		return nil, err
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return data, nil
}
