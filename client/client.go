// Package client talks to the rule service over HTTP. Every failure, whether
// a dial error, a non-2xx status or an undecodable body, is reported as
// ErrTransport so callers can fall back locally. Calls are never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/liamcoop/labourcompliance/compliance"
	"github.com/liamcoop/labourcompliance/deadline"
	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// ErrTransport marks a failed call to the rule service.
var ErrTransport = errors.New("rule service unavailable")

// DefaultTimeout bounds a single call when no *http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// Client calls the rule service API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the service at baseURL. A nil httpClient uses
// one with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Rules implements rules.Source.
func (c *Client) Rules(ctx context.Context, j jurisdiction.Jurisdiction, category string) ([]*rules.Rule, error) {
	q := url.Values{}
	q.Set("jurisdiction", string(j))
	if category != "" {
		q.Set("category", category)
	}

	var out struct {
		Rules []*rules.Rule `json:"rules"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/rules?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Rules, nil
}

// Evaluate implements compliance.Remote. A response without a checks list
// is malformed, even when the list would be empty.
func (c *Client) Evaluate(ctx context.Context, req compliance.Request) (compliance.Report, error) {
	var out struct {
		Checks  *[]compliance.Check `json:"checks"`
		Skipped []compliance.Skip   `json:"skipped"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/compliance/evaluate", req, &out); err != nil {
		return compliance.Report{}, err
	}
	if out.Checks == nil {
		return compliance.Report{}, fmt.Errorf("%w: evaluate response has no checks", ErrTransport)
	}
	return compliance.Report{Checks: *out.Checks, Skipped: out.Skipped}, nil
}

// Calculate implements deadline.Remote.
func (c *Client) Calculate(ctx context.Context, req deadline.Request) (deadline.Result, error) {
	var out deadline.Result
	if err := c.do(ctx, http.MethodPost, "/api/v1/deadlines/calculate", req, &out); err != nil {
		return deadline.Result{}, err
	}
	if !out.DeadlineDate.IsValid() {
		return deadline.Result{}, fmt.Errorf("%w: deadline response has no deadlineDate", ErrTransport)
	}
	return out, nil
}

// Compare implements compare.Remote.
func (c *Client) Compare(ctx context.Context, js []jurisdiction.Jurisdiction, category string) (map[jurisdiction.Jurisdiction][]*rules.Rule, error) {
	codes := make([]string, len(js))
	for i, j := range js {
		codes[i] = string(j)
	}
	q := url.Values{}
	q.Set("jurisdictions", strings.Join(codes, ","))
	q.Set("category", category)

	var out struct {
		Comparison map[jurisdiction.Jurisdiction][]*rules.Rule `json:"comparison"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/rules/compare?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if out.Comparison == nil {
		return nil, fmt.Errorf("%w: compare response has no comparison", ErrTransport)
	}
	return out.Comparison, nil
}

// Health reports whether the service answers its health check.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s returned %s", ErrTransport, method, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrTransport, path, err)
	}
	return nil
}
