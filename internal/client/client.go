// Package client talks to a running quitc daemon over its HTTP API.
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
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/quitc/internal/daemon"
	"github.com/theirongolddev/quitc/internal/model"
)

const (
	requestTimeout = 5 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
	userAgent      = "quitc/1.0"
)

var (
	// ErrNoTokens indicates the daemon refused a HEART because the month's
	// tokens are spent.
	ErrNoTokens = errors.New("client: no tokens left this month")
	// ErrFutureDay indicates the daemon refused to log a day after today.
	ErrFutureDay = errors.New("client: cannot log a future day")
)

// Client calls the daemon API rooted at a base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for addr, given either as host:port or as a full URL.
// Returns nil if addr is empty.
func New(addr string) *Client {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{},
	}
}

// Status returns the daemon status with the summary for month (the current
// month when zero).
func (c *Client) Status(ctx context.Context, month model.Month) (*daemon.Status, error) {
	q := url.Values{}
	if month != (model.Month{}) {
		q.Set("month", month.String())
	}

	var st daemon.Status
	if err := c.do(ctx, http.MethodGet, "/v1/status", q, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Days returns the logged days, restricted to month unless it is zero.
func (c *Client) Days(ctx context.Context, month model.Month) (model.Days, error) {
	q := url.Values{}
	if month != (model.Month{}) {
		q.Set("month", month.String())
	}

	days := model.Days{}
	if err := c.do(ctx, http.MethodGet, "/v1/days", q, nil, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// Trend returns n months of success rates ending at month.
func (c *Client) Trend(ctx context.Context, month model.Month, n int) ([]model.MonthRate, error) {
	q := url.Values{}
	if month != (model.Month{}) {
		q.Set("month", month.String())
	}
	q.Set("months", strconv.Itoa(n))

	var trend []model.MonthRate
	if err := c.do(ctx, http.MethodGet, "/v1/trend", q, nil, &trend); err != nil {
		return nil, err
	}
	return trend, nil
}

// Events returns the daemon's recent event log, oldest first.
func (c *Client) Events(ctx context.Context) ([]daemon.Event, error) {
	var events []daemon.Event
	if err := c.do(ctx, http.MethodGet, "/v1/events", nil, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// SetDay logs status for date through the daemon.
func (c *Client) SetDay(ctx context.Context, date model.Date, status model.DayStatus) (*daemon.DayResponse, error) {
	body, err := json.Marshal(map[string]string{"status": status.String()})
	if err != nil {
		return nil, err
	}
	return c.day(ctx, http.MethodPut, date, body)
}

// ClearDay removes the entry for date through the daemon.
func (c *Client) ClearDay(ctx context.Context, date model.Date) (*daemon.DayResponse, error) {
	return c.day(ctx, http.MethodDelete, date, nil)
}

func (c *Client) day(ctx context.Context, method string, date model.Date, body []byte) (*daemon.DayResponse, error) {
	var resp daemon.DayResponse
	err := c.do(ctx, method, "/v1/days/"+date.String(), nil, body, &resp)
	switch {
	case errors.Is(err, ErrNoTokens):
		return &resp, err
	case err != nil:
		return nil, err
	}
	return &resp, nil
}

// do performs a request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return fmt.Errorf("client: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("client: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		_ = json.Unmarshal(data, out)
		return ErrNoTokens
	case http.StatusUnprocessableEntity:
		return ErrFutureDay
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("client: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: parsing %s: %w", path, err)
	}
	return nil
}
