// Package fetch is the network collaborator consumed by the install
// pipeline: fetch bytes for a URL, nothing more. No caching and no retries;
// every call is exactly one attempt.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"launcherd/internal/fault"
)

// Fetcher fetches remote content. Both calls block until the transfer
// completes or fails.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	FetchToFile(ctx context.Context, url, destinationPath string) error
}

// HTTPFetcher implements Fetcher over net/http with a bounded per-request
// timeout, so a stalled transfer cannot hold a task's goroutine forever.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher whose individual requests time out after
// the given duration. A zero timeout means no bound.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchBytes downloads the URL's content into memory.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response from %s: %v", fault.ErrInternal, url, err)
	}
	return data, nil
}

// FetchToFile streams the URL's content to destinationPath. A partially
// written file is removed on failure so the pipeline never leaves truncated
// downloads behind.
func (f *HTTPFetcher) FetchToFile(ctx context.Context, url, destinationPath string) error {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("%w: open %s for writing: %v", fault.ErrInternal, destinationPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(destinationPath)
		return fmt.Errorf("%w: download %s: %v", fault.ErrInternal, url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destinationPath)
		return fmt.Errorf("%w: close %s: %v", fault.ErrInternal, destinationPath, err)
	}
	return nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %v", fault.ErrInvalidArgument, url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", fault.ErrInternal, url, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s returned HTTP %d", fault.ErrNotFound, url, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s returned HTTP %d", fault.ErrInternal, url, resp.StatusCode)
	}
	return resp, nil
}
