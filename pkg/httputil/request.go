package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultUserAgent identifies repotrack to upstream servers.
const DefaultUserAgent = "repotrack-fetcher/0"

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (connection errors, non-success responses).
	ErrNetwork = errors.New("network error")
)

// Request describes a GET request issued through [Get].
type Request struct {
	URL       string
	UserAgent string            // DefaultUserAgent when empty
	Headers   map[string]string // applied after User-Agent
	Backoff   *Backoff          // DefaultBackoff when nil

	// AllowNotModified makes a 304 response a success instead of an error.
	AllowNotModified bool
}

// Get performs the request and returns the response with an unread body.
// The caller must close the body. Connection errors and 5xx responses are
// retried according to the request's Backoff.
func Get(ctx context.Context, client *http.Client, r Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	backoff := DefaultBackoff
	if r.Backoff != nil {
		backoff = *r.Backoff
	}

	var resp *http.Response
	err := Retry(ctx, backoff, func() error {
		var err error
		resp, err = do(ctx, client, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetText performs the request and returns the whole body as a string.
// Only use it for small documents.
func GetText(ctx context.Context, client *http.Client, r Request) (string, error) {
	resp, err := Get(ctx, client, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var b strings.Builder
	if _, err := io.Copy(&b, resp.Body); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrNetwork, r.URL, err)
	}
	return b.String(), nil
}

func do(ctx context.Context, client *http.Client, r Request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return nil, err
	}
	ua := r.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}

	if resp.StatusCode == http.StatusNotModified && r.AllowNotModified {
		return resp, nil
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %w", r.URL, err)
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{
			Err:   fmt.Errorf("%w: status %d", ErrNetwork, code),
			After: retryAfter(resp.Header),
		}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
