package ustvgo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockServer provides a configurable upstream mock for testing.
type MockServer struct {
	*httptest.Server
	mu        sync.Mutex
	schedules map[string]map[string][]Program // lookupKey -> day -> programs
	failures  map[string]int                  // remaining failures before success per key
	status    map[string]int                  // fixed non-200 status per key
	delay     map[string]time.Duration        // artificial delay per key
	empty     map[string]bool                 // respond with an empty body
	rawBody   map[string][]byte               // verbatim response body per key
	requests  map[string]int                  // request counter per key
}

// NewMockServer creates an upstream mock with no data; use SetSchedule to
// populate it.
func NewMockServer() *MockServer {
	mock := &MockServer{
		schedules: make(map[string]map[string][]Program),
		failures:  make(map[string]int),
		status:    make(map[string]int),
		delay:     make(map[string]time.Duration),
		empty:     make(map[string]bool),
		rawBody:   make(map[string][]byte),
		requests:  make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/epg/json/", mock.handleSchedule)
	mock.Server = httptest.NewServer(mux)
	return mock
}

// SetSchedule registers programs for a lookup key under the given day bucket.
func (m *MockServer) SetSchedule(lookupKey, day string, programs []Program) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.schedules[lookupKey] == nil {
		m.schedules[lookupKey] = make(map[string][]Program)
	}
	m.schedules[lookupKey][day] = programs
}

// FailTimes makes the next n requests for a key return HTTP 503.
func (m *MockServer) FailTimes(lookupKey string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[lookupKey] = n
}

// SetStatus makes every request for a key return the given HTTP status.
func (m *MockServer) SetStatus(lookupKey string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[lookupKey] = status
}

// SetDelay adds an artificial delay to responses for the key.
func (m *MockServer) SetDelay(lookupKey string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay[lookupKey] = d
}

// SetEmpty makes responses for the key carry an empty body.
func (m *MockServer) SetEmpty(lookupKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.empty[lookupKey] = true
}

// SetRawBody makes responses for the key carry the given verbatim body.
func (m *MockServer) SetRawBody(lookupKey string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawBody[lookupKey] = body
}

// Requests returns how many times the key was requested.
func (m *MockServer) Requests(lookupKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[lookupKey]
}

func (m *MockServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/epg/json/"), ".json")

	m.mu.Lock()
	m.requests[key]++
	delay := m.delay[key]
	fixedStatus := m.status[key]
	emptyBody := m.empty[key]
	raw := m.rawBody[key]
	shouldFail := false
	if m.failures[key] > 0 {
		m.failures[key]--
		shouldFail = true
	}
	schedule := m.schedules[key]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if shouldFail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if fixedStatus != 0 && fixedStatus != http.StatusOK {
		w.WriteHeader(fixedStatus)
		return
	}
	if emptyBody {
		return
	}
	if raw != nil {
		_, _ = w.Write(raw)
		return
	}

	payload := schedulePayload{Items: schedule}
	if payload.Items == nil {
		payload.Items = map[string][]Program{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
