// Package api implements the gateways against the remote POS API: product
// lookup, employee validation, and transaction submission. The client owns
// none of these endpoints; any non-2xx answer is an error for the caller to
// translate.
package api

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

	"github.com/sirupsen/logrus"

	"github.com/poslane/poslane/internal/core/domain"
)

var ErrNotFound = errors.New("not found")

const defaultTimeout = 10 * time.Second

// employeeHeader carries the acting employee identity on submissions.
const employeeHeader = "emp-cd"

type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// NewClient builds a client for the API at baseURL. A zero timeout falls back
// to the default.
func NewClient(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// LookupByCode fetches one product by barcode value.
func (c *Client) LookupByCode(ctx context.Context, code string) (*domain.Product, error) {
	endpoint := fmt.Sprintf("%s/products/code/%s", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build product request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("product %q: %w", code, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lookup product: unexpected status %d", resp.StatusCode)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return &product, nil
}

// Validate reports whether the employee code is known to the remote API. Any
// 2xx answer with a non-empty payload counts as valid.
func (c *Client) Validate(ctx context.Context, code string) (bool, error) {
	endpoint := fmt.Sprintf("%s/employees/%s", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build employee request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate employee: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("validate employee: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read employee response: %w", err)
	}
	payload := strings.TrimSpace(string(body))
	return payload != "" && payload != "null", nil
}

// Submit posts the ordered cart lines. The body is a bare JSON array; the
// employee identity travels in the emp-cd header.
func (c *Client) Submit(ctx context.Context, employeeCode string, lines []domain.CartItem) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	endpoint := c.baseURL + "/transactions/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build transaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(employeeHeader, employeeCode)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("submit transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("submit transaction: unexpected status %d", resp.StatusCode)
	}
	c.log.WithFields(logrus.Fields{
		"employee_code": employeeCode,
		"lines":         len(lines),
	}).Debug("transaction accepted")
	return nil
}
