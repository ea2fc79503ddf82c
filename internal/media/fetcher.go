// Package media materializes remote images into a content-addressed store so
// that pages never hotlink short-lived upstream URLs.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	// DefaultPrefix is the public path under which stored media is served.
	DefaultPrefix = "/images/"
	// defaultExtension is used when the URL has no allowed extension.
	defaultExtension = "jpg"
	// keyLength is the number of hex characters of the digest kept in a filename.
	keyLength = 16
	// maxBodyBytes bounds a single download.
	maxBodyBytes = 50 << 20
)

var (
	// ErrDownloadFailed is wrapped by every DownloadError and by ErrTooLarge.
	ErrDownloadFailed = errors.New("download_failed")
	// ErrTooLarge is returned when a response body exceeds the download limit.
	ErrTooLarge = fmt.Errorf("%w: media exceeds size limit", ErrDownloadFailed)
	// ErrNotFound is returned by Open when no object is stored under a name.
	ErrNotFound = errors.New("media not found")
)

// DownloadError reports a non-success response while fetching media.
type DownloadError struct {
	URL    string
	Status int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("image_download_failed_%d", e.Status)
}

// StatusCode returns the HTTP status of the failed download.
func (e *DownloadError) StatusCode() int {
	return e.Status
}

func (e *DownloadError) Unwrap() error {
	return ErrDownloadFailed
}

var allowedExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {}, "svg": {}, "avif": {},
}

// Store persists media bytes under a generated filename. Implementations must
// tolerate concurrent writers of the same name: the first write wins and later
// writes succeed without replacing it.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	Put(ctx context.Context, name string, body []byte) error
}

// ContentKey derives the stable key for a media URL: the first 16 hex characters
// of the SHA-256 of the URL without its query string, so re-signed URLs for the
// same object share a key.
func ContentKey(rawURL string) string {
	stable, _, _ := strings.Cut(rawURL, "?")
	sum := sha256.Sum256([]byte(stable))
	return hex.EncodeToString(sum[:])[:keyLength]
}

// Extension returns the lowercase extension of the URL path if it is an allowed
// image type, and "jpg" otherwise.
func Extension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExtension
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
	if _, ok := allowedExtensions[ext]; !ok {
		return defaultExtension
	}
	return ext
}

// Filename is the content-addressed filename for a media URL.
func Filename(rawURL string) string {
	return ContentKey(rawURL) + "." + Extension(rawURL)
}

// ValidFilename reports whether name has the shape produced by Filename.
func ValidFilename(name string) bool {
	key, ext, ok := strings.Cut(name, ".")
	if !ok || len(key) != keyLength {
		return false
	}
	if _, err := hex.DecodeString(key); err != nil || strings.ToLower(key) != key {
		return false
	}
	_, allowed := allowedExtensions[ext]
	return allowed
}

// Object is a stored media file opened for reading.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Opener reads stored media back. Open returns ErrNotFound for unknown names.
type Opener interface {
	Open(ctx context.Context, name string) (*Object, error)
}

// Backend is a Store that can also serve what it stored.
type Backend interface {
	Store
	Opener
}

// Fetcher downloads remote media into a Store once per content key.
type Fetcher struct {
	store    Store
	prefix   string
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a Fetcher that serves stored files under prefix.
func NewFetcher(store Store, prefix string, timeout time.Duration) *Fetcher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Fetcher{
		store:    store,
		prefix:   prefix,
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBodyBytes,
	}
}

// Materialize returns a local reference for rawURL. Empty values and local paths
// are returned unchanged. Remote URLs are fetched only if their content key is
// not already stored.
func (f *Fetcher) Materialize(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" || strings.HasPrefix(rawURL, f.prefix) || strings.HasPrefix(rawURL, "/") {
		return rawURL, nil
	}

	name := Filename(rawURL)
	ref := f.prefix + name

	exists, err := f.store.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to check media %s: %w", name, err)
	}
	if exists {
		return ref, nil
	}

	body, err := f.download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if err := f.store.Put(ctx, name, body); err != nil {
		return "", fmt.Errorf("failed to store media %s: %w", name, err)
	}
	return ref, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{URL: rawURL, Status: resp.StatusCode}
	}

	// One byte past the limit distinguishes a truncated body from an exact fit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read media body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s larger than %d bytes", ErrTooLarge, rawURL, f.maxBytes)
	}
	return body, nil
}
