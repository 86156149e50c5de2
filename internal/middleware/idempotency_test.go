package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chronotrack-io/chronotrack/internal/middleware"
)

// memCache is an in-memory cache.Cache for testing.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	store := newMemCache()
	calls := 0
	handler := middleware.Idempotency(store, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"call":%d}`, calls)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "signup-abc123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	second := do()

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Errorf("codes = %d, %d, want 201, 201", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotencyDistinctKeys(t *testing.T) {
	store := newMemCache()
	calls := 0
	handler := middleware.Idempotency(store, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, key := range []string{"key-1", "key-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Errorf("handler called %d times, want 2", calls)
	}
}

func TestIdempotencySkipsWithoutKey(t *testing.T) {
	store := newMemCache()
	calls := 0
	handler := middleware.Idempotency(store, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Errorf("handler called %d times, want 2", calls)
	}
}

func TestIdempotencySkipsReads(t *testing.T) {
	store := newMemCache()
	calls := 0
	handler := middleware.Idempotency(store, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", http.NoBody)
		req.Header.Set("Idempotency-Key", "read-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Errorf("handler called %d times, want 2", calls)
	}

	if len(store.data) != 0 {
		t.Errorf("GET responses cached: %v", store.data)
	}
}
