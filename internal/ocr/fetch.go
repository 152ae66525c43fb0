package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fepa-project/expense-ocr/constants"
)

// ImageFetcher downloads the submitted image. Implementations must bound the
// download; the worker applies no timeout of its own.
type ImageFetcher interface {
	Fetch(ctx context.Context, fileURL string) ([]byte, error)
}

// HTTPFetcher fetches over HTTP with a hard client timeout.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

func NewHTTPFetcher(timeout time.Duration, maxBytes int64, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, fileURL string) ([]byte, error) {
	f.logger.Debug("downloading image", "file_url", fileURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !constants.IsImageContentType(ct) {
		return nil, fmt.Errorf("download image: unsupported content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d byte limit", f.maxBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("download image: empty body")
	}

	f.logger.Debug("image downloaded", "file_url", fileURL, "bytes", len(body))
	return body, nil
}
