package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gridprep/internal/errors"
)

// Client talks to the remote data service over HTTP. It performs no retries:
// failures surface as errors carrying a human-readable message extracted from
// the response body when present, and the caller owns user-facing display and
// manual retry.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Config holds client construction settings.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewClient creates a data service client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Minute
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

// do executes a request and decodes the raw response body, translating
// non-2xx statuses into errors with the body's message when one is present.
func (c *Client) do(req *http.Request, fallback string) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fallback, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", fallback, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithCode(errors.CodeDataService,
			fmt.Errorf("%s (status %d)", extractErrorMessage(body, fallback), resp.StatusCode))
	}
	return body, nil
}

// extractErrorMessage digs a human-readable message out of an error response
// body, falling back to the generic operation message.
func extractErrorMessage(body []byte, fallback string) string {
	var payload struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			return payload.Error
		case payload.Detail != "":
			return payload.Detail
		case payload.Message != "":
			return payload.Message
		}
	}
	return fallback
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, fallback string, out any) error {
	target := c.endpoint(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	raw, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	return c.decodeMaybeTask(ctx, raw, fallback, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, fallback string, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	raw, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	return c.decodeMaybeTask(ctx, raw, fallback, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, fallback string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	raw, err := c.do(req, fallback)
	if err != nil {
		return err
	}
	return c.decodeMaybeTask(ctx, raw, fallback, out)
}
