package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lexygraph/docflow/internal/infrastructure/resilience"
)

const maxErrorBodyBytes = 64 * 1024

// Client issues downstream agent calls under a per-attempt timeout and a
// transient-only retry policy. Terminal failures leave the client already
// mapped to the domain error taxonomy.
type Client struct {
	httpClient *http.Client
	executor   *resilience.Executor
	timeout    time.Duration
}

func New(timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		// The transport-level timeout is disabled: the per-attempt context
		// deadline is the single source of truth for the time budget.
		httpClient: &http.Client{},
		executor:   executor,
		timeout:    timeout,
	}
}

func (c *Client) Call(ctx context.Context, url string, payload map[string]any, headers map[string]string) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal agent payload: %w", err)
	}

	var out map[string]any
	call := func(attemptCtx context.Context) error {
		return c.doAttempt(attemptCtx, url, data, headers, &out)
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "agent.call", call, classifyCallError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, mapCallError(err)
	}
	return out, nil
}

func (c *Client) doAttempt(ctx context.Context, url string, body []byte, headers map[string]string, out *map[string]any) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return &timeoutError{budget: c.timeout, cause: err}
		}
		return &unreachableError{cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &statusError{
			statusCode: resp.StatusCode,
			body:       strings.TrimSpace(string(raw)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &malformedError{cause: err}
	}
	return nil
}
