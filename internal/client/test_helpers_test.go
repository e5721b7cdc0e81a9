package client

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
)

// route is one canned response of the fake server.
type route struct {
	status      int
	contentType string
	body        string
	headers     map[string]string
}

// recordedRequest is what the fake server saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
}

// fakeTAXII serves canned responses per method and path. When a path has
// several responses they are served in order and the last one repeats.
type fakeTAXII struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string][]route
	hits     map[string]int
	requests map[string][]recordedRequest
}

func newFakeTAXII(t *testing.T) *fakeTAXII {
	t.Helper()

	fake := &fakeTAXII{
		routes:   map[string][]route{},
		hits:     map[string]int{},
		requests: map[string][]recordedRequest{},
	}

	fake.Server = httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(fake.Close)

	return fake
}

func (f *fakeTAXII) serve(writer http.ResponseWriter, request *http.Request) {
	key := request.Method + " " + request.URL.Path
	body, _ := io.ReadAll(request.Body)

	f.mu.Lock()
	responses := f.routes[key]
	hit := f.hits[key]
	f.hits[key]++
	f.requests[key] = append(f.requests[key], recordedRequest{
		Method: request.Method,
		Path:   request.URL.Path,
		Query:  request.URL.Query(),
		Header: request.Header.Clone(),
		Body:   string(body),
	})
	f.mu.Unlock()

	if len(responses) == 0 {
		http.NotFound(writer, request)

		return
	}

	if hit >= len(responses) {
		hit = len(responses) - 1
	}

	resp := responses[hit]
	writer.Header().Set("Content-Type", resp.contentType)

	for name, value := range resp.headers {
		writer.Header().Set(name, value)
	}

	status := resp.status
	if status == 0 {
		status = http.StatusOK
	}

	writer.WriteHeader(status)
	_, _ = writer.Write([]byte(resp.body))
}

func (f *fakeTAXII) handle(method, path string, responses ...route) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.routes[method+" "+path] = responses
}

func (f *fakeTAXII) hitCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.hits[method+" "+path]
}

func (f *fakeTAXII) lastRequest(method, path string) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	requests := f.requests[method+" "+path]
	if len(requests) == 0 {
		return recordedRequest{}
	}

	return requests[len(requests)-1]
}

func (f *fakeTAXII) allRequests(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]recordedRequest(nil), f.requests[method+" "+path]...)
}

func taxii21(body string) route {
	return route{contentType: taxii2.MediaTypeTAXIIV21, body: body}
}

func taxii20(body string) route {
	return route{contentType: taxii2.MediaTypeTAXIIV20, body: body}
}

func stix20(body string) route {
	return route{contentType: taxii2.MediaTypeSTIXV20, body: body}
}

func config21() *taxii2.Config {
	return &taxii2.Config{Version: taxii2.Version21}
}

func config20() *taxii2.Config {
	return &taxii2.Config{Version: taxii2.Version20}
}

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) record(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.record("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

func (l *MockLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var messages []string

	for _, entry := range l.logs {
		if entry["level"] == level {
			messages = append(messages, entry["msg"].(string))
		}
	}

	return messages
}

func sprintf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
