// Package testutil provides testing utilities for the member-listing
// gateway client and the enumeration engine.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// FakeMember mirrors the gateway's participant wire format.
type FakeMember struct {
	ID         int64  `json:"id"`
	AccessHash int64  `json:"access_hash,omitempty"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Bot        bool   `json:"is_bot,omitempty"`
	Verified   bool   `json:"is_verified,omitempty"`
	Premium    bool   `json:"is_premium,omitempty"`
}

// FakeChannel is an in-memory channel with its full member table.
type FakeChannel struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username,omitempty"`
	Megagroup bool   `json:"is_megagroup"`

	// ParticipantsCount reported to clients; defaults to len(Members).
	ParticipantsCount int `json:"participants_count"`

	Members []FakeMember `json:"-"`
}

// ParticipantsCall records one observed participants request.
type ParticipantsCall struct {
	Ref    string
	Filter string
	Offset int
	Limit  int
}

type failureSpec struct {
	statusCode        int
	retryAfterSeconds int
}

// MockGateway is a configurable fake member-listing gateway. Filters
// match case-insensitive prefixes of username, first or last name; a
// nonzero query cap truncates every filtered query's total result set,
// reproducing the capped-listing behavior the engine works around.
type MockGateway struct {
	server *httptest.Server

	mu           sync.Mutex
	channels     map[string]*FakeChannel
	queryCap     int
	requireToken string
	failures     []failureSpec

	RequestCount int
	Calls        []ParticipantsCall
}

// NewMockGateway creates a mock gateway with no channels registered.
func NewMockGateway() *MockGateway {
	mock := &MockGateway{
		channels: make(map[string]*FakeChannel),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockGateway) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGateway) Close() {
	m.server.Close()
}

// AddChannel registers a channel under the given reference.
func (m *MockGateway) AddChannel(ref string, channel FakeChannel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel.ParticipantsCount == 0 {
		channel.ParticipantsCount = len(channel.Members)
	}
	m.channels[ref] = &channel
}

// SetQueryCap caps the total results any single filtered query can see.
// Zero disables the cap.
func (m *MockGateway) SetQueryCap(cap int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryCap = cap
}

// RequireToken makes the gateway reject requests without the given
// bearer token with 401.
func (m *MockGateway) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requireToken = token
}

// FailNext queues count failures with the given status for upcoming
// participant requests. retryAfterSeconds > 0 adds a Retry-After header.
func (m *MockGateway) FailNext(count, statusCode, retryAfterSeconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		m.failures = append(m.failures, failureSpec{statusCode, retryAfterSeconds})
	}
}

// GetRequestCount returns the number of requests observed.
func (m *MockGateway) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// ParticipantCalls returns a copy of the observed participant requests.
func (m *MockGateway) ParticipantCalls() []ParticipantsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ParticipantsCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}

func (m *MockGateway) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	token := m.requireToken
	m.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		writeJSONError(w, http.StatusUnauthorized, "session unauthorized")
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/v1/channels/")
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown endpoint")
		return
	}

	if ref, found := strings.CutSuffix(rest, "/participants"); found {
		m.handleParticipants(w, r, ref)
		return
	}

	m.handleChannel(w, rest)
}

func (m *MockGateway) handleChannel(w http.ResponseWriter, ref string) {
	m.mu.Lock()
	channel, exists := m.channels[ref]
	m.mu.Unlock()

	if !exists {
		writeJSONError(w, http.StatusNotFound, "channel not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(channel)
}

func (m *MockGateway) handleParticipants(w http.ResponseWriter, r *http.Request, ref string) {
	query := r.URL.Query()
	filter := query.Get("q")
	offset, _ := strconv.Atoi(query.Get("offset"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, ParticipantsCall{Ref: ref, Filter: filter, Offset: offset, Limit: limit})
	channel, exists := m.channels[ref]
	queryCap := m.queryCap
	var failure *failureSpec
	if len(m.failures) > 0 {
		failure = &m.failures[0]
		m.failures = m.failures[1:]
	}
	m.mu.Unlock()

	if failure != nil {
		if failure.retryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(failure.retryAfterSeconds))
		}
		writeJSONError(w, failure.statusCode, "injected failure")
		return
	}

	if !exists {
		writeJSONError(w, http.StatusNotFound, "channel not found")
		return
	}

	matches := matchMembers(channel.Members, filter)
	if queryCap > 0 && len(matches) > queryCap {
		matches = matches[:queryCap]
	}

	page := []FakeMember{}
	if offset < len(matches) {
		end := offset + limit
		if end > len(matches) {
			end = len(matches)
		}
		page = matches[offset:end]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]FakeMember{"users": page})
}

// matchMembers applies the gateway's search semantics: an empty filter
// matches everyone, otherwise prefix match on username or name parts.
func matchMembers(members []FakeMember, filter string) []FakeMember {
	if filter == "" {
		out := make([]FakeMember, len(members))
		copy(out, members)
		return out
	}

	needle := strings.ToLower(filter)
	var out []FakeMember
	for _, m := range members {
		if strings.HasPrefix(strings.ToLower(m.Username), needle) ||
			strings.HasPrefix(strings.ToLower(m.FirstName), needle) ||
			strings.HasPrefix(strings.ToLower(m.LastName), needle) {
			out = append(out, m)
		}
	}
	return out
}

func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
