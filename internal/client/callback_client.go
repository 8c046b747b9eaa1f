// Package client provides the outbound HTTP transport to result consumers.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent = "egisz-callback-relay/1.0"
	// maxDrainBytes bounds how much of a response body is read before closing.
	maxDrainBytes = 64 << 10
)

// CallbackClient posts result envelopes to consumer endpoints.
type CallbackClient struct {
	client *http.Client
}

// NewCallbackClient creates a client whose requests time out after timeout.
func NewCallbackClient(timeout time.Duration) *CallbackClient {
	return &CallbackClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post sends body to url and returns the response status code. Only
// transport failures are returned as errors; any status is a valid result.
func (c *CallbackClient) Post(ctx context.Context, url, contentType string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create callback request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send callback: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return resp.StatusCode, nil
}
