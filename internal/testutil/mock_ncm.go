// Package testutil provides testing utilities for the NCM client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockResponse defines a canned response for one path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockNCM is a configurable mock NCM server. It serves both pagination
// conventions: v2 collections ({"data": [...], "meta": {"next": ...}}) and
// v3 collections ({"data": [...], "links": {"next": ...}}), with offset
// continuation URLs like the real service.
type MockNCM struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	gates    map[string]func(r *http.Request) *MockResponse

	requestCount int
	pathCounts   map[string]int
	lastHeaders  map[string]http.Header
}

// NewMockNCM creates a new mock NCM server.
func NewMockNCM() *MockNCM {
	mock := &MockNCM{
		handlers:    make(map[string]http.HandlerFunc),
		gates:       make(map[string]func(r *http.Request) *MockResponse),
		pathCounts:  make(map[string]int),
		lastHeaders: make(map[string]http.Header),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.lastHeaders[r.URL.Path] = r.Header.Clone()
		gate := mock.gates[r.URL.Path]
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if gate != nil {
			if resp := gate(r); resp != nil {
				writeResponse(w, *resp)
				return
			}
		}

		if exists {
			handler(w, r)
			return
		}

		// Unconfigured paths behave like a missing resource.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Not found."}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockNCM) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNCM) Close() {
	m.server.Close()
}

// Reset clears all tracking counters and failure gates.
func (m *MockNCM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastHeaders = make(map[string]http.Header)
	m.gates = make(map[string]func(r *http.Request) *MockResponse)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockNCM) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockNCM) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// FailWhen installs a gate consulted before the path's handler. A non-nil
// return short-circuits the request with that response; nil falls through.
func (m *MockNCM) FailWhen(path string, gate func(r *http.Request) *MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates[path] = gate
}

// FailTimes makes the first n requests to path fail with status, after which
// requests fall through to the configured handler.
func (m *MockNCM) FailTimes(path string, n, status int, headers map[string]string) {
	var mu sync.Mutex
	remaining := n
	m.FailWhen(path, func(r *http.Request) *MockResponse {
		mu.Lock()
		defer mu.Unlock()
		if remaining <= 0 {
			return nil
		}
		remaining--
		return &MockResponse{
			StatusCode: status,
			Body:       fmt.Sprintf(`{"error": "injected %d"}`, status),
			Headers:    headers,
		}
	})
}

// FailAtOffset fails any request to path whose offset parameter equals
// offset. Used to kill a specific page of a walk.
func (m *MockNCM) FailAtOffset(path string, offset, status int) {
	m.FailWhen(path, func(r *http.Request) *MockResponse {
		if r.URL.Query().Get("offset") == strconv.Itoa(offset) {
			return &MockResponse{
				StatusCode: status,
				Body:       fmt.Sprintf(`{"error": "injected %d"}`, status),
			}
		}
		return nil
	})
}

// ServeV2Collection serves records as a paginated v2 collection at path.
// The limit parameter sets the page size and offset continues the walk,
// mirroring the real meta.next behavior. Filters in the query narrow the
// record set: plain keys match equality, key__in keys match membership.
func (m *MockNCM) ServeV2Collection(path string, records []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		pageSize := intParam(query, "limit", 20)
		offset := intParam(query, "offset", 0)

		filtered := filterRecords(records, query, v2FilterKeys)
		page, next := slicePage(filtered, offset, pageSize, m.server.URL+path, query)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": page,
			"meta": map[string]any{"next": next},
		})
	})
}

// ServeV3Collection serves records as a paginated v3 collection at path,
// using page[size] and links.next.
func (m *MockNCM) ServeV3Collection(path string, records []map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		pageSize := intParam(query, "page[size]", 50)
		offset := intParam(query, "offset", 0)

		filtered := filterRecords(records, query, v3FilterKeys)
		page, next := slicePage(filtered, offset, pageSize, m.server.URL+path, query)

		w.Header().Set("Content-Type", "application/vnd.api+json")
		json.NewEncoder(w).Encode(map[string]any{
			"data":  page,
			"links": map[string]any{"next": next},
		})
	})
}

// ServeV2Resource serves one bare record at path (single-resource read).
func (m *MockNCM) ServeV2Resource(path string, record map[string]any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(record)
	})
}

// RequestCount returns the total number of requests served.
func (m *MockNCM) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns the number of requests served for one path.
func (m *MockNCM) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastHeaderFor returns the headers of the most recent request to path.
func (m *MockNCM) LastHeaderFor(path string) http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeaders[path]
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func intParam(query url.Values, key string, fallback int) int {
	if v, err := strconv.Atoi(query.Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// v2FilterKeys extracts (field, values) from a flat v2 query parameter.
func v2FilterKeys(key, value string) (string, []string, bool) {
	switch key {
	case "limit", "offset", "order_by", "expand", "fields":
		return "", nil, false
	}
	if field, ok := strings.CutSuffix(key, "__in"); ok {
		return field, strings.Split(value, ","), true
	}
	if strings.Contains(key, "__") {
		// Operators other than __in are not simulated.
		return "", nil, false
	}
	return key, []string{value}, true
}

// v3FilterKeys extracts (field, values) from a JSON:API filter parameter.
func v3FilterKeys(key, value string) (string, []string, bool) {
	if !strings.HasPrefix(key, "filter[") {
		return "", nil, false
	}
	inner := strings.TrimPrefix(key, "filter[")
	field, rest, _ := strings.Cut(inner, "]")
	if rest != "" && rest != "[in]" {
		return "", nil, false
	}
	return field, strings.Split(value, ","), true
}

// filterRecords keeps records whose fields match every filter in the query.
func filterRecords(records []map[string]any, query url.Values, extract func(key, value string) (string, []string, bool)) []map[string]any {
	type predicate struct {
		field  string
		values map[string]bool
	}
	var predicates []predicate
	for key := range query {
		field, values, ok := extract(key, query.Get(key))
		if !ok {
			continue
		}
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		predicates = append(predicates, predicate{field: field, values: set})
	}
	if len(predicates) == 0 {
		return records
	}

	var out []map[string]any
	for _, record := range records {
		match := true
		for _, p := range predicates {
			if !p.values[fmt.Sprint(record[p.field])] {
				match = false
				break
			}
		}
		if match {
			out = append(out, record)
		}
	}
	return out
}

// slicePage cuts one page out of filtered and builds the continuation URL.
func slicePage(filtered []map[string]any, offset, pageSize int, baseURL string, query url.Values) ([]map[string]any, any) {
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	page := filtered[offset:end]

	if end >= len(filtered) {
		return page, nil
	}

	nextQuery := url.Values{}
	for key, values := range query {
		nextQuery[key] = values
	}
	nextQuery.Set("offset", strconv.Itoa(end))
	return page, baseURL + "?" + nextQuery.Encode()
}
