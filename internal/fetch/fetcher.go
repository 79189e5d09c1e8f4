// Package fetch downloads policy documents over HTTPS with bounded size and time.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"policyqa/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// Fetcher retrieves document bytes from arbitrary URLs. It enforces a
// timeout and a maximum payload size, and rejects non-PDF content.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// Config bounds a single fetch.
type Config struct {
	Timeout  time.Duration
	MaxBytes int64
}

// NewFetcher creates a fetcher with the given bounds.
func NewFetcher(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = 50 << 20
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads the document at url and returns its raw bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{URL: url, Status: resp.StatusCode}
	}
	if resp.ContentLength > f.maxBytes {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("content length %d exceeds limit %d", resp.ContentLength, f.maxBytes)}
	}

	// Read one byte past the limit so oversized bodies are detected.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("payload exceeds limit %d", f.maxBytes)}
	}

	if err := checkPDF(resp.Header.Get("Content-Type"), body); err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	return body, nil
}

// checkPDF validates the declared content type, falling back to magic-byte
// sniffing for servers that declare a generic type.
func checkPDF(contentType string, body []byte) error {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	mediaType = strings.ToLower(mediaType)
	switch mediaType {
	case "application/pdf", "application/x-pdf":
		return nil
	case "", "application/octet-stream", "binary/octet-stream":
		if bytes.HasPrefix(body, pdfMagic) {
			return nil
		}
		return fmt.Errorf("content is not a PDF")
	default:
		return fmt.Errorf("unsupported content type %q", mediaType)
	}
}
