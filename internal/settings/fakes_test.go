package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/hitoshi/samkitchen/internal/gist"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memoryCache はCacheRepositoryのテスト用実装。
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	return nil
}

// mockFetcher はDocumentFetcherのテスト用モック。
type mockFetcher struct {
	fetchFn func(ctx context.Context, rawURL string) ([]byte, error)
	urls    []string
}

func (m *mockFetcher) FetchDocument(ctx context.Context, rawURL string) ([]byte, error) {
	m.urls = append(m.urls, rawURL)
	return m.fetchFn(ctx, rawURL)
}

// mockWriter はRemoteWriterのテスト用モック。
type mockWriter struct {
	updateFn func(ctx context.Context, ref gist.DocumentRef, token string, content []byte) (string, string, error)
	calls    int
	content  []byte
	ref      gist.DocumentRef
	token    string
}

func (m *mockWriter) UpdateFile(ctx context.Context, ref gist.DocumentRef, token string, content []byte) (string, string, error) {
	m.calls++
	m.ref = ref
	m.token = token
	m.content = content
	return m.updateFn(ctx, ref, token, content)
}

// mockRecorder はRecorderのテスト用モック。
type mockRecorder struct {
	resolutions []string
	syncs       []string
}

func (m *mockRecorder) RecordSettingsResolution(source string) {
	m.resolutions = append(m.resolutions, source)
}

func (m *mockRecorder) RecordRemoteSync(outcome string) {
	m.syncs = append(m.syncs, outcome)
}

var errRemoteDown = errors.New("remote down")
