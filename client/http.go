package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"LifeOracle/internal/api"
)

// maxResponseSize bounds the body read from a node.
const maxResponseSize = 1 << 20

// StatusError is a non-success answer from the node API.
type StatusError struct {
	Code    int    // Code is the HTTP status
	Message string // Message is the error reported by the node
	State   string // State is the flow state that failed, if any
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("status %d in %s: %s", e.Code, e.State, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// Retryable reports whether the request may succeed later unchanged.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusServiceUnavailable
}

// httpGet performs a GET request and decodes the JSON response.
// Any status other than want yields a *StatusError.
func httpGet(ctx context.Context, hc *http.Client, url string, want int, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	body := io.LimitReader(resp.Body, maxResponseSize)

	if resp.StatusCode != want {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}

		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error, State: apiErr.State}
	}

	if err := json.NewDecoder(body).Decode(result); err != nil {
		return fmt.Errorf("decode %s:\n%w", url, err)
	}

	return nil
}
