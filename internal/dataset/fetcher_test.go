package dataset

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/colocaviz/cropmap-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "https://example.test/merged.csv"

type memoryStore struct {
	bodies   map[string][]byte
	times    map[string]time.Time
	getErr   error
	putErr   error
	putCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{bodies: map[string][]byte{}, times: map[string]time.Time{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	if m.getErr != nil {
		return nil, time.Time{}, false, m.getErr
	}
	b, ok := m.bodies[key]
	return b, m.times[key], ok, nil
}

func (m *memoryStore) Put(_ context.Context, key string, body []byte, at time.Time) error {
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	m.bodies[key] = body
	m.times[key] = at
	return nil
}

func setFakeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	c := clockwork.NewFakeClockAt(time.Date(2025, time.May, 12, 9, 0, 0, 0, time.UTC))
	SetClock(c)
	t.Cleanup(func() { SetClock(nil) })
	return c
}

func TestCachedFetcher_MissThenHit(t *testing.T) {
	setFakeClock(t)
	inner := &stubFetcher{body: []byte("fresh")}
	store := newMemoryStore()
	f := NewCachedFetcher(inner, store, testKey, time.Hour, discardLogger(), observability.NewMetricsForTesting())

	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), body)
	assert.Equal(t, 1, store.putCalls)

	body, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), body)
	assert.Equal(t, int64(1), inner.calls.Load(), "second fetch served from store")
}

func TestCachedFetcher_StaleRefetches(t *testing.T) {
	c := setFakeClock(t)
	inner := &stubFetcher{body: []byte("new")}
	store := newMemoryStore()
	store.bodies[testKey] = []byte("old")
	store.times[testKey] = c.Now().Add(-2 * time.Hour)

	f := NewCachedFetcher(inner, store, testKey, time.Hour, discardLogger(), observability.NewMetricsForTesting())

	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), body)
	assert.Equal(t, c.Now(), store.times[testKey])
}

func TestCachedFetcher_StoreErrorsFallBackToNetwork(t *testing.T) {
	setFakeClock(t)
	inner := &stubFetcher{body: []byte("net")}
	store := newMemoryStore()
	store.getErr = errors.New("disk I/O error")
	store.putErr = errors.New("read-only database")

	f := NewCachedFetcher(inner, store, testKey, time.Hour, discardLogger(), observability.NewMetricsForTesting())

	body, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("net"), body)
}

func TestCachedFetcher_InnerErrorIsReturned(t *testing.T) {
	setFakeClock(t)
	inner := &stubFetcher{err: errors.New("timeout")}
	store := newMemoryStore()
	f := NewCachedFetcher(inner, store, testKey, time.Hour, discardLogger(), observability.NewMetricsForTesting())

	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, store.putCalls)
}
