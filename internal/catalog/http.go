package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// FetchError is returned once every attempt to fetch URL has failed.
type FetchError struct {
	URL        string
	Attempts   int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("error reading %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("error reading %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTTPClient performs GETs that retry on transport failures and on any
// non-200 status, waiting between attempts as the BackoffPolicy says.
type HTTPClient struct {
	client *retryablehttp.Client
}

// NewHTTPClient makes at most attempts requests per Get.
func NewHTTPClient(attempts int, policy BackoffPolicy, timeout time.Duration) *HTTPClient {
	if attempts < 1 {
		attempts = 1
	}
	if policy == nil {
		policy = FixedBackoff{Delay: time.Second}
	}

	c := retryablehttp.NewClient()
	c.RetryMax = attempts - 1
	c.Logger = slog.Default()
	c.HTTPClient.Timeout = timeout
	c.CheckRetry = retryOnNon200
	c.Backoff = func(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
		return policy.NextDelay(attemptNum + 1)
	}
	c.ErrorHandler = func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		fe := &FetchError{Attempts: numTries, Err: err}
		if resp != nil {
			fe.StatusCode = resp.StatusCode
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if fe.Err == nil {
				fe.Err = fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
		}
		return nil, fe
	}

	return &HTTPClient{client: c}
}

func retryOnNon200(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode != http.StatusOK, nil
}

// Get returns the body of url or a *FetchError.
func (c *HTTPClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Attempts: 0, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.URL = url
			return nil, fe
		}
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Attempts: 1, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return data, nil
}
