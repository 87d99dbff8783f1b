package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/pkg/observability"
)

// HTTPPushSender posts notifications as JSON to a push gateway.
type HTTPPushSender struct {
	url        string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPPushSender creates a push sender for the given gateway URL
func NewHTTPPushSender(url, apiKey string, timeout time.Duration, client *http.Client) *HTTPPushSender {
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPPushSender{
		url:        url,
		apiKey:     apiKey,
		httpClient: client,
		timeout:    timeout,
	}
}

// Name returns the driver name
func (s *HTTPPushSender) Name() string {
	return "http"
}

// Send delivers one notification
func (s *HTTPPushSender) Send(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}

	payload := &pushRequest{
		ID:     n.ID,
		To:     n.Contact,
		Title:  n.Title,
		Body:   n.Body,
		SentAt: n.CreatedAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	if traceID := observability.GetTraceIDFromContext(ctx); traceID != "" {
		req.Header.Set(observability.TraceIDHeader, traceID)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure pushResponse
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Message != "" {
			return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, failure.Message)
		}
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}

	return nil
}

type pushRequest struct {
	ID     string    `json:"id"`
	To     string    `json:"to"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

type pushResponse struct {
	Message string `json:"message"`
}
