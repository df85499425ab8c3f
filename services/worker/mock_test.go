package worker

import (
	"context"
	"errors"
	"sync"

	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/services/notifier"
	"sjsage522/eventworker/services/publisher"
)

// MockExtractor implements the extractor.Extractor interface for testing
type MockExtractor struct {
	siteID   string
	name     string
	events   []extractor.Event
	fetchErr error
	panicMsg string
}

// Ensure MockExtractor implements extractor.Extractor
var _ extractor.Extractor = (*MockExtractor)(nil)

func (m *MockExtractor) FetchAndParse(ctx context.Context) ([]extractor.Event, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.events, m.fetchErr
}

func (m *MockExtractor) GetName() string   { return m.name }
func (m *MockExtractor) GetSiteID() string { return m.siteID }

// MockTracker is an in-memory sent-record tracker
type MockTracker struct {
	mu         sync.Mutex
	sent       map[extractor.Key]string
	failWrites bool
	filterArgs [][]extractor.Key
	marked     []extractor.Key
}

var _ Tracker = (*MockTracker)(nil)

func NewMockTracker(already ...extractor.Key) *MockTracker {
	m := &MockTracker{sent: make(map[extractor.Key]string)}
	for _, k := range already {
		m.sent[k] = "earlier"
	}
	return m
}

func (m *MockTracker) FilterNew(ctx context.Context, keys []extractor.Key) []extractor.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filterArgs = append(m.filterArgs, keys)
	var fresh []extractor.Key
	for _, k := range keys {
		if _, ok := m.sent[k]; !ok {
			fresh = append(fresh, k)
		}
	}
	return fresh
}

func (m *MockTracker) MarkSent(ctx context.Context, k extractor.Key, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errors.New("kv write rejected")
	}
	m.sent[k] = title
	m.marked = append(m.marked, k)
	return nil
}

// MockNotifier records every message kind
type MockNotifier struct {
	mu         sync.Mutex
	events     [][]extractor.Event
	alerts     [][]notifier.Failure
	errors     []string
	failEvents bool
	failAlert  bool
}

var _ notifier.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) SendEvents(ctx context.Context, events []extractor.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failEvents {
		return errors.New("telegram: HTTP 502")
	}
	m.events = append(m.events, events)
	return nil
}

func (m *MockNotifier) SendAlert(ctx context.Context, failures []notifier.Failure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, failures)
	if m.failAlert {
		return errors.New("telegram: HTTP 502")
	}
	return nil
}

func (m *MockNotifier) SendError(ctx context.Context, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, errMsg)
	return nil
}

// MockPublisher implements the publisher.Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	trimmed  int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy the message to ensure thread safety
	messageCopy := make([]byte, len(message))
	copy(messageCopy, message)
	m.messages = append(m.messages, messageCopy)
	return nil
}

func (m *MockPublisher) TrimStreams(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trimmed++
	return nil
}
