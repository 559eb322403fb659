package imaging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// UserAgentName is the application name used in the User-Agent header.
	UserAgentName = "paint-mcp"

	// DefaultFetchTimeout is the default HTTP request timeout.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultMaxFetchBytes caps how much of a remote image is read.
	DefaultMaxFetchBytes = 32 << 20
)

// FetchOptions configures HTTP fetch behavior.
type FetchOptions struct {
	// Timeout specifies the HTTP request timeout.
	// If zero, DefaultFetchTimeout is used.
	Timeout time.Duration

	// MaxBytes limits the response body size. If zero, DefaultMaxFetchBytes is used.
	MaxBytes int64

	// UserAgentVersion is appended to UserAgentName in the User-Agent header.
	UserAgentVersion string
}

// DefaultFetchOptions returns the options used when none are configured.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:          DefaultFetchTimeout,
		MaxBytes:         DefaultMaxFetchBytes,
		UserAgentVersion: "dev",
	}
}

// Fetcher retrieves remote images over HTTP(S).
type Fetcher struct {
	client *http.Client
	opts   FetchOptions
}

// NewFetcher creates a fetcher with the given options.
func NewFetcher(opts FetchOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxFetchBytes
	}
	if opts.UserAgentVersion == "" {
		opts.UserAgentVersion = "dev"
	}
	return &Fetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Fetch retrieves content from a URL with context and timeout support.
// Any status other than 200 is an error.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s/%s", UserAgentName, f.opts.UserAgentVersion))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", f.opts.MaxBytes)
	}

	return data, nil
}
