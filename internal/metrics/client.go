// Package metrics posts latency events to the external metrics
// collector. Recording is strictly best-effort: a slow or dead
// collector must never affect, delay or abort the reply path.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	contentType    = "application/json"
	defaultTimeout = 5 * time.Second
	minTimeout     = time.Second
)

// LatencyEvent is one recorded operation latency.
type LatencyEvent struct {
	Service      string  `json:"service"`
	LatencyMS    float64 `json:"latency_ms"`
	SessionID    string  `json:"session_id"`
	TurnID       string  `json:"turn_id"`
	Success      bool    `json:"success"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Client records events against the metrics service. A nil client or
// an empty base URL disables recording entirely.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a metrics client. The timeout is clamped to [1s, 5s] so
// a stuck collector cannot hold a goroutine for long.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}

	if timeout <= 0 || timeout > defaultTimeout {
		timeout = defaultTimeout
	}
	if timeout < minTimeout {
		timeout = minTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// RecordLatency posts one latency event synchronously.
func (c *Client) RecordLatency(ctx context.Context, event LatencyEvent) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal latency event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/latency", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return nil
}

// RecordLatencyAsync posts the event from a detached goroutine with
// its own deadline. Failures are logged at warn and dropped.
func (c *Client) RecordLatencyAsync(event LatencyEvent) {
	if c == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
		defer cancel()

		if err := c.RecordLatency(ctx, event); err != nil {
			c.logger.Warn("recording latency metric failed",
				zap.String("service", event.Service),
				zap.Error(err),
			)
		}
	}()
}
