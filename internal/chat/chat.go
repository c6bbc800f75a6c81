// Package chat relays dashboard chat messages to the hosted assistant proxy.
// The proxy is rate-limited and occasionally overloaded; both conditions are
// transient, rendered distinctly, and fall back to canned local replies.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeller/fieldops/internal/router"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrRateLimited maps HTTP 429 from the proxy.
	ErrRateLimited = errors.New("assistant is rate limited")
	// ErrOverloaded maps HTTP 503 from the proxy.
	ErrOverloaded = errors.New("assistant is overloaded")
	// ErrUnavailable covers every other transport failure.
	ErrUnavailable = errors.New("assistant is unreachable")
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Client talks to the chat proxy endpoint.
type Client struct {
	proxyURL string
	http     *http.Client
}

func New(proxyURL string) *Client {
	return &Client{
		proxyURL: proxyURL,
		http:     &http.Client{Timeout: defaultTimeout},
	}
}

// WithHTTPClient substitutes the underlying client (tests).
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Send posts the message with conversation history and returns the
// assistant's reply. A configured empty proxy URL reports ErrUnavailable so
// the caller falls back locally.
func (c *Client) Send(ctx context.Context, message string, history []Message) (string, error) {
	if c.proxyURL == "" {
		return "", ErrUnavailable
	}

	payload := struct {
		Message string    `json:"message"`
		History []Message `json:"conversationHistory"`
	}{Message: message, History: history}

	enc, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(enc))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return "", ErrRateLimited
	case http.StatusServiceUnavailable:
		return "", ErrOverloaded
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var reply struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("%w: malformed reply", ErrUnavailable)
	}
	if !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = "unspecified error"
		}
		return "", fmt.Errorf("assistant error: %s", msg)
	}
	return reply.Message, nil
}

// Fallback builds a canned local reply from the router's classification, used
// when the proxy is unreachable, rate limited, or overloaded.
func Fallback(res router.Result) string {
	switch res.Tool {
	case router.ToolInventory:
		return "That sounds like an inventory question. Open the Inventory tool for current stock."
	case router.ToolGrading:
		return "That sounds like a grading question. The Grading tool has slope and drainage details."
	case router.ToolWorkOrders:
		return "That sounds like a work order question. Check the Work Orders view for line items and progress."
	case router.ToolScheduling:
		return "That sounds like a scheduling question. The crew calendar lives in the Scheduling tool."
	case router.ToolInvoicing:
		return "That sounds like a billing question. Invoices and estimates are in the Invoicing tool."
	default:
		return "I can't reach the assistant right now. Try again in a moment, or use the tool views directly."
	}
}
