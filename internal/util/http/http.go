// Package http fetches remote source art for theme slots.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/version"
)

const (
	// UserAgentName prefixes the User-Agent header on every request.
	UserAgentName = "optcgsim-themer"

	// DefaultTimeout applies when FetchOptions.Timeout is zero.
	DefaultTimeout = 30 * time.Second
)

// ErrTooLarge is returned when a response body exceeds FetchOptions.MaxBytes.
var ErrTooLarge = errors.New("response body too large")

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// FetchOptions configures a single download.
type FetchOptions struct {
	Timeout time.Duration

	// Headers are added to the request after the User-Agent.
	Headers map[string]string

	// MaxBytes caps the response body size. Zero means unlimited.
	MaxBytes int64
}

// Fetch downloads url and returns the body. The request honours ctx as well as
// the per-call timeout.
func Fetch(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgentName+"/"+version.Short())
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	if opts.MaxBytes > 0 && resp.ContentLength > opts.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes advertised, limit %d", ErrTooLarge, resp.ContentLength, opts.MaxBytes)
	}

	var body io.Reader = resp.Body
	if opts.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, opts.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if opts.MaxBytes > 0 && int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, opts.MaxBytes)
	}
	return data, nil
}
