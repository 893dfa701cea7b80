package bridge

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wdanxna/LocalLLMTranslator/safe"
)

// HTTPHandler returns a Handler that POSTs the payload to the host daemon,
// for deployments where the translation client runs out of process. The
// endpoint must be a local address; selections never leave the machine.
func HTTPHandler(endpoint string, timeout time.Duration) (Handler, error) {
	if err := safe.ValidateLocalURL(endpoint); err != nil {
		return nil, fmt.Errorf("bridge/http: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	return func(ctx context.Context, payload []byte) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("bridge/http: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("bridge/http: do request: %w", err)
		}
		defer resp.Body.Close()

		body, err := safe.LimitedReadAll(resp.Body, safe.MaxResponseBody)
		if err != nil {
			return nil, fmt.Errorf("bridge/http: read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("bridge/http: status %d: %s", resp.StatusCode, body)
		}
		return body, nil
	}, nil
}
