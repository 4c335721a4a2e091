// Package norne is a Go client for the norne-server HTTP API.
package norne

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("norne api: %d %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the norne-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new norne API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Strategies lists the registered strategy types.
func (c *Client) Strategies(ctx context.Context) ([]string, error) {
	var out struct {
		Strategies []string `json:"strategies"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &out); err != nil {
		return nil, err
	}
	return out.Strategies, nil
}

// Backtest runs a backtest on the server.
func (c *Client) Backtest(ctx context.Context, req BacktestRequest) (*BacktestResponse, error) {
	var out BacktestResponse
	if err := c.do(ctx, http.MethodPost, "/api/backtest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a parameter search on the server.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchTable, error) {
	var out []SearchTable
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
