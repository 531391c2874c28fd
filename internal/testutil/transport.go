package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/caniput/internal/transport"
)

// MockTransport is an in-memory transport.Transport. It records every
// request and answers through Respond.
type MockTransport struct {
	// Respond answers attempt n (1-based). A nil Respond replies with an
	// empty body.
	Respond func(attempt int, req transport.Request) ([]byte, error)

	mu       sync.Mutex
	requests []transport.Request
	times    []time.Time
	closed   bool
}

// Submit implements transport.Transport.
func (m *MockTransport) Submit(ctx context.Context, req transport.Request) ([]byte, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.times = append(m.times, time.Now())
	n := len(m.requests)
	m.mu.Unlock()

	if m.Respond == nil {
		return nil, nil
	}
	return m.Respond(n, req)
}

// Close implements transport.Transport.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Requests returns a copy of the recorded requests.
func (m *MockTransport) Requests() []transport.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]transport.Request(nil), m.requests...)
}

// Attempts returns the number of Submit calls so far.
func (m *MockTransport) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// AttemptTimes returns when each Submit call started.
func (m *MockTransport) AttemptTimes() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.times...)
}

// Closed reports whether Close was called.
func (m *MockTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
