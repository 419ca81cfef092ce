// Package imagedata loads images from remote URLs or inline data URLs and
// encodes them back to data URLs for storage on scenes.
package imagedata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyboard/internal/domain"
)

const (
	// DefaultMaxBytes caps a single image download
	DefaultMaxBytes = 20 << 20
	// DefaultTimeout is the HTTP timeout for one download
	DefaultTimeout = 30 * time.Second
	// DefaultContentType is assumed when the source does not say
	DefaultContentType = "image/png"
)

// ErrUnsupportedSource is returned for sources that are neither http(s) nor data URLs.
var ErrUnsupportedSource = errors.New("unsupported image source")

// Image is a decoded image payload.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURL encodes the image as data:<content-type>;base64,<payload>
func (img *Image) DataURL() string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Extension returns the file extension matching the content type, with a dot.
func (img *Image) Extension() string {
	switch strings.ToLower(img.ContentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// ParseDataURL decodes a base64 data URL.
func ParseDataURL(src string) (*Image, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, ErrUnsupportedSource
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("malformed data URL")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, errors.New("data URL is not base64 encoded")
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return &Image{Data: data, ContentType: contentType}, nil
}

// Fetcher loads images from http(s) URLs or data URLs.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a fetcher with default limits.
func NewFetcher() *Fetcher {
	return NewFetcherWithConfig(&http.Client{Timeout: DefaultTimeout}, DefaultMaxBytes)
}

// NewFetcherWithConfig creates a fetcher with a custom client and size limit.
func NewFetcherWithConfig(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{httpClient: client, maxBytes: maxBytes}
}

// Fetch loads the image behind src.
func (f *Fetcher) Fetch(ctx context.Context, src string) (*Image, error) {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "data:"):
		return ParseDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return f.download(ctx, src)
	default:
		return nil, ErrUnsupportedSource
	}
}

func (f *Fetcher) download(ctx context.Context, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &domain.UpstreamError{Provider: "image host", Err: fmt.Errorf("download image: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }() // Error ignored: response consumed

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.UpstreamError{
			Provider: "image host",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("download image: status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &domain.UpstreamError{Provider: "image host", Status: resp.StatusCode, Err: fmt.Errorf("read image: %w", err)}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &Image{Data: data, ContentType: contentType}, nil
}
