// Package client talks to the cinecalc HTTP API and implements ledger.Store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cinecalc/internal/core"
	"cinecalc/internal/ledger"
)

const (
	DefaultBaseURL = "http://localhost:8081/api"
	DefaultTimeout = 10 * time.Second

	headerIdempotencyKey = "Idempotency-Key"
	maxErrorBody         = 4 << 10
)

var _ ledger.Store = (*Client)(nil)

type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default transport, mainly for tests.
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = newHTTPClient(timeout)
	}
	return &Client{baseURL: base, http: hc}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func (c *Client) List(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, nil, http.StatusOK, &out); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	for i := range out {
		out[i] = out[i].Recomputed()
	}
	return out, nil
}

// Create sends a fresh Idempotency-Key so a resent request cannot create a
// second row.
func (c *Client) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	var out core.Expense
	headers := map[string]string{headerIdempotencyKey: uuid.NewString()}
	if err := c.do(ctx, http.MethodPost, "/expenses", in, headers, http.StatusCreated, &out); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return out.Recomputed(), nil
}

type updateBody struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Price            json.Number `json:"price"`
	PercentageMarkup json.Number `json:"percentageMarkup"`
}

func (c *Client) Update(ctx context.Context, id int64, in core.ExpenseInput) error {
	body := updateBody{
		ID:               id,
		Name:             in.Name,
		Price:            core.AmountJSON(in.Price),
		PercentageMarkup: core.AmountJSON(in.PercentageMarkup),
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/expenses/%d", id), body, nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("update expense %d: %w", id, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/expenses/%d", id), nil, nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

func (c *Client) Total(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := c.do(ctx, http.MethodGet, "/expenses/total", nil, nil, http.StatusOK, &total); err != nil {
		return decimal.Zero, fmt.Errorf("get total: %w", err)
	}
	return total, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string, want int, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ledger.ErrNetwork, err)
	}
	return nil
}

// statusError maps an unexpected response to a ledger error kind. Anything
// that is not a client error counts as a network failure.
func statusError(resp *http.Response) error {
	msg := readMessage(resp.Body)
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		if msg == "" {
			msg = "Invalid input"
		}
		return &core.ValidationError{Reason: msg}
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ledger.ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ledger.ErrConflict, msg)
	default:
		return fmt.Errorf("%w: unexpected status %d: %s", ledger.ErrNetwork, resp.StatusCode, msg)
	}
}

func readMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
