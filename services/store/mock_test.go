package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

type putCall struct {
	key   string
	value []byte
	ttl   time.Duration
}

// mockKV is an in-memory KVStore with injectable read failures.
type mockKV struct {
	mu       sync.Mutex
	data     map[string][]byte
	failGet  map[string]bool
	failPut  bool
	puts     []putCall
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func newMockKV() *mockKV {
	return &mockKV{
		data:    make(map[string][]byte),
		failGet: make(map[string]bool),
	}
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	m.mu.Unlock()

	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	if m.failGet[key] {
		return nil, errors.New("connection reset")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *mockKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("read only replica")
	}
	m.data[key] = value
	m.puts = append(m.puts, putCall{key: key, value: value, ttl: ttl})
	return nil
}

func (m *mockKV) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockKV) Close() error { return nil }
