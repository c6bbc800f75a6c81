package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 12 * time.Second

// Client issues GET/POST requests against the sheet endpoint. It applies a
// bounded timeout and reports failures via the error types in this package;
// it never retries — retry policy belongs to the sync engine.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithTimeout bounds every request. Timeouts are treated identically to
// network failure by callers.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient substitutes the underlying client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// Fetch issues a GET with action and params in the query string and returns
// the raw JSON body after the transport and envelope checks.
func (c *Client) Fetch(ctx context.Context, action string, params map[string]string) (json.RawMessage, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}
	q := u.Query()
	q.Set("action", action)
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return c.do(req, action)
}

// Send issues a POST whose JSON body is payload with the action field merged
// in. payload must marshal to a JSON object (or be nil).
func (c *Client) Send(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	body := map[string]any{"action": action}
	if payload != nil {
		enc, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		if err := json.Unmarshal(enc, &body); err != nil {
			return nil, fmt.Errorf("payload is not a JSON object: %w", err)
		}
		body["action"] = action
	}

	enc, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(enc))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, action)
}

func (c *Client) do(req *http.Request, action string) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UnavailableError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UnavailableError{
			Action: action,
			Err:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Action: action, Err: err}
	}

	// The endpoint signals application errors inside a 200.
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &UnavailableError{Action: action, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "unspecified error"
		}
		return nil, &AppError{Action: action, Message: msg}
	}
	return raw, nil
}

func decode[T any](raw json.RawMessage, action string) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &UnavailableError{Action: action, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &out, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	raw, err := c.Fetch(ctx, "ping", nil)
	if err != nil {
		return nil, err
	}
	return decode[PingResponse](raw, "ping")
}

// GetAll fetches work orders and all progress in one round trip.
func (c *Client) GetAll(ctx context.Context) (*GetAllResponse, error) {
	raw, err := c.Fetch(ctx, "getAll", nil)
	if err != nil {
		return nil, err
	}
	return decode[GetAllResponse](raw, "getAll")
}

// GetWorkOrders fetches the work order list only.
func (c *Client) GetWorkOrders(ctx context.Context) (*GetWorkOrdersResponse, error) {
	raw, err := c.Fetch(ctx, "getWorkOrders", nil)
	if err != nil {
		return nil, err
	}
	return decode[GetWorkOrdersResponse](raw, "getWorkOrders")
}

// GetProgress fetches progress for one work order. Progress is nil when the
// sheet has none recorded.
func (c *Client) GetProgress(ctx context.Context, woNumber string) (*GetProgressResponse, error) {
	if woNumber == "" {
		return nil, ErrMissingWONumber
	}
	raw, err := c.Fetch(ctx, "getProgress", map[string]string{"woNumber": woNumber})
	if err != nil {
		return nil, err
	}
	return decode[GetProgressResponse](raw, "getProgress")
}

// GetSummary fetches the server-computed summary for one work order.
func (c *Client) GetSummary(ctx context.Context, woNumber string) (*GetSummaryResponse, error) {
	if woNumber == "" {
		return nil, ErrMissingWONumber
	}
	raw, err := c.Fetch(ctx, "getSummary", map[string]string{"woNumber": woNumber})
	if err != nil {
		return nil, err
	}
	return decode[GetSummaryResponse](raw, "getSummary")
}

// SaveWorkOrders pushes the full local snapshot.
func (c *Client) SaveWorkOrders(ctx context.Context, orders []WorkOrder) (*SaveResult, error) {
	for _, wo := range orders {
		if wo.WONumber == "" {
			return nil, ErrMissingWONumber
		}
	}
	raw, err := c.Send(ctx, "saveWorkOrders", map[string]any{"workOrders": orders})
	if err != nil {
		return nil, err
	}
	return decode[SaveResult](raw, "saveWorkOrders")
}

// UpdateProgress pushes the progress items for one work order.
func (c *Client) UpdateProgress(ctx context.Context, woNumber string, items []ProgressItem) (*UpdateProgressResult, error) {
	if woNumber == "" {
		return nil, ErrMissingWONumber
	}
	payload := map[string]any{
		"woNumber": woNumber,
		"progress": ProgressSet{WONumber: woNumber, Items: items},
	}
	raw, err := c.Send(ctx, "updateProgress", payload)
	if err != nil {
		return nil, err
	}
	return decode[UpdateProgressResult](raw, "updateProgress")
}

// DeleteWorkOrder removes one work order from the sheet.
func (c *Client) DeleteWorkOrder(ctx context.Context, woNumber string) (*DeleteResult, error) {
	if woNumber == "" {
		return nil, ErrMissingWONumber
	}
	raw, err := c.Send(ctx, "deleteWorkOrder", map[string]any{"woNumber": woNumber})
	if err != nil {
		return nil, err
	}
	return decode[DeleteResult](raw, "deleteWorkOrder")
}

// ClearAll wipes the sheet. Destructive; only the settings view exposes it.
func (c *Client) ClearAll(ctx context.Context) (*ClearResult, error) {
	raw, err := c.Send(ctx, "clearAll", nil)
	if err != nil {
		return nil, err
	}
	return decode[ClearResult](raw, "clearAll")
}
