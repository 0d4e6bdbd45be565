// Package assets fetches mesh assets by identifier through a local disk cache.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/meshdedup/internal/logger"
)

// DefaultConcurrency bounds simultaneous downloads in FetchAll.
const DefaultConcurrency = 4

var (
	// ErrInvalidIdentifier is returned when an asset identifier has no digits.
	ErrInvalidIdentifier = errors.New("invalid asset identifier")
	// ErrFetchFailed is returned when the remote store does not deliver an asset.
	ErrFetchFailed = errors.New("asset fetch failed")
	// ErrBatchFailed is returned by FetchAll when any task fails.
	ErrBatchFailed = errors.New("asset batch failed")
)

var idPattern = regexp.MustCompile(`\d+`)

// ExtractID returns the first run of decimal digits in assetID.
func ExtractID(assetID string) (string, error) {
	id := idPattern.FindString(assetID)
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, assetID)
	}
	return id, nil
}

// Options configures a Fetcher.
type Options struct {
	CacheDir    string
	Endpoint    string // URL template, {id} is replaced by the numeric id
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	Client      *http.Client // overrides Timeout when set
}

// Fetcher resolves asset identifiers to raw bytes. Files in the cache
// directory are named by numeric id and are never invalidated.
type Fetcher struct {
	cacheDir  string
	endpoint  string
	userAgent string
	limit     int
	client    *http.Client
	memory    *Cache
}

// NewFetcher creates a fetcher and its cache directory.
func NewFetcher(opts Options) (*Fetcher, error) {
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("cache directory not set")
	}
	if !strings.Contains(opts.Endpoint, "{id}") {
		return nil, fmt.Errorf("endpoint %q has no {id} placeholder", opts.Endpoint)
	}
	if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Fetcher{
		cacheDir:  opts.CacheDir,
		endpoint:  opts.Endpoint,
		userAgent: opts.UserAgent,
		limit:     limit,
		client:    client,
		memory:    NewCache(),
	}, nil
}

// CachePath returns the disk cache path for a numeric id.
func (f *Fetcher) CachePath(id string) string {
	return filepath.Join(f.cacheDir, id)
}

// URL returns the remote location of a numeric id.
func (f *Fetcher) URL(id string) string {
	return strings.ReplaceAll(f.endpoint, "{id}", id)
}

// Stats returns in-memory cache statistics.
func (f *Fetcher) Stats() (hits, misses int) {
	return f.memory.Stats()
}

// Fetch returns the bytes of assetID, downloading and caching them if needed.
func (f *Fetcher) Fetch(ctx context.Context, assetID string) ([]byte, error) {
	id, err := ExtractID(assetID)
	if err != nil {
		return nil, err
	}

	if data, ok := f.memory.Get(id); ok {
		return data, nil
	}

	path := f.CachePath(id)
	data, err := os.ReadFile(path)
	if err == nil {
		logger.Debug("asset cache hit", logger.Asset(id), zap.Int("bytes", len(data)))
		f.memory.Set(id, data)
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading cached asset %s: %w", id, err)
	}

	data, err = f.download(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.store(id, data); err != nil {
		return nil, err
	}
	f.memory.Set(id, data)
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, id string) ([]byte, error) {
	url := f.URL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, id, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", ErrFetchFailed, id, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %w", ErrFetchFailed, id, err)
	}

	logger.Info("asset downloaded",
		logger.Asset(id),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)))
	return data, nil
}

// store writes data to the cache through a temp file so readers never see
// a partial asset.
func (f *Fetcher) store(id string, data []byte) error {
	tmp, err := os.CreateTemp(f.cacheDir, id+".*.tmp")
	if err != nil {
		return fmt.Errorf("caching asset %s: %w", id, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("caching asset %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("caching asset %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), f.CachePath(id)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("caching asset %s: %w", id, err)
	}
	return nil
}

// FetchAll fetches every id with at most Concurrency downloads in flight.
// A failure does not cancel siblings; they finish and the batch still fails.
func (f *Fetcher) FetchAll(ctx context.Context, ids []string) error {
	var g errgroup.Group
	g.SetLimit(f.limit)

	seen := make(map[string]bool, len(ids))
	for _, assetID := range ids {
		if seen[assetID] {
			continue
		}
		seen[assetID] = true

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("fetching %s: panic: %v", assetID, r)
				}
			}()
			_, err = f.Fetch(ctx, assetID)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("asset batch failed", zap.Int("assets", len(seen)), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	logger.Debug("asset batch complete", zap.Int("assets", len(seen)), zap.Int("cached", f.memory.Len()))
	return nil
}
