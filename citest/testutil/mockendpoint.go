package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockEndpoint is an HTTP server that mimics a custom completion endpoint
// for testing. It serves a one-shot JSON route, a nested-payload variant,
// and a streaming route emitting data: frames. Responses are selected by
// the configured rules from the prompt in the request body.
type MockEndpoint struct {
	server *httptest.Server
	config *MockEndpointConfig

	mu       sync.Mutex
	requests []RecordedRequest
}

// RecordedRequest records one incoming request for verification.
type RecordedRequest struct {
	Timestamp     time.Time
	Method        string
	Path          string
	Body          map[string]interface{}
	Prompt        string
	Authorization string
	APIKeyHeader  string
}

// NewMockEndpoint creates a mock endpoint with the default scenarios.
func NewMockEndpoint() *MockEndpoint {
	return NewMockEndpointWithConfig(DefaultMockEndpointConfig())
}

// NewMockEndpointWithConfig creates a mock endpoint serving the given
// scenario configuration.
func NewMockEndpointWithConfig(config *MockEndpointConfig) *MockEndpoint {
	m := &MockEndpoint{
		config:   config,
		requests: make([]RecordedRequest, 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/generate", m.handleGenerate)
	mux.HandleFunc("/generate/nested", m.handleNested)
	mux.HandleFunc("/stream", m.handleStream)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	m.server = httptest.NewServer(mux)
	return m
}

// URL returns the mock server's base URL.
func (m *MockEndpoint) URL() string {
	return m.server.URL
}

// GenerateURL returns the one-shot completion route.
func (m *MockEndpoint) GenerateURL() string {
	return m.server.URL + "/generate"
}

// StreamURL returns the streaming completion route.
func (m *MockEndpoint) StreamURL() string {
	return m.server.URL + "/stream"
}

// Close shuts down the mock server.
func (m *MockEndpoint) Close() {
	m.server.Close()
}

// Requests returns a copy of all recorded requests.
func (m *MockEndpoint) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent recorded request, or nil.
func (m *MockEndpoint) LastRequest() *RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}

// ResetRequests clears the recorded requests.
func (m *MockEndpoint) ResetRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = m.requests[:0]
}

// readRequest decodes and records one incoming request. A missing or
// empty prompt answers 400, matching what a real endpoint would reject.
func (m *MockEndpoint) readRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return "", false
	}
	defer r.Body.Close()

	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return "", false
	}

	prompt, _ := body["prompt"].(string)

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Timestamp:     time.Now(),
		Method:        r.Method,
		Path:          r.URL.Path,
		Body:          body,
		Prompt:        prompt,
		Authorization: r.Header.Get("Authorization"),
		APIKeyHeader:  r.Header.Get("X-API-Key"),
	})
	m.mu.Unlock()

	if prompt == "" {
		http.Error(w, "prompt is required", http.StatusBadRequest)
		return "", false
	}

	if m.config.Settings.LagMS > 0 {
		time.Sleep(time.Duration(m.config.Settings.LagMS) * time.Millisecond)
	}

	return prompt, true
}

// handleGenerate answers one JSON document with the text under "text".
func (m *MockEndpoint) handleGenerate(w http.ResponseWriter, r *http.Request) {
	prompt, ok := m.readRequest(w, r)
	if !ok {
		return
	}

	response, _ := m.config.FindMatchingResponse(prompt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"text":  response,
		"model": "mock-endpoint",
	})
}

// handleNested answers the response buried under a nested key path, for
// exercising outputKeyPath extraction.
func (m *MockEndpoint) handleNested(w http.ResponseWriter, r *http.Request) {
	prompt, ok := m.readRequest(w, r)
	if !ok {
		return
	}

	response, _ := m.config.FindMatchingResponse(prompt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"output": map[string]interface{}{
			"choices": []map[string]interface{}{
				{"text": response, "finish_reason": "stop"},
			},
		},
	})
}

// handleStream emits the response as data: frames, one chunk per frame.
// The stream ends at EOF; there is no explicit terminator.
func (m *MockEndpoint) handleStream(w http.ResponseWriter, r *http.Request) {
	prompt, ok := m.readRequest(w, r)
	if !ok {
		return
	}

	response, _ := m.config.FindMatchingResponse(prompt)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, flushOK := w.(http.Flusher)
	if !flushOK {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, chunk := range m.splitIntoChunks(response) {
		frame, _ := json.Marshal(map[string]string{"text": chunk})
		w.Write([]byte("data: " + string(frame) + "\n\n"))
		flusher.Flush()

		if m.config.Settings.ChunkDelayMS > 0 {
			time.Sleep(time.Duration(m.config.Settings.ChunkDelayMS) * time.Millisecond)
		}
	}
}

// splitIntoChunks splits content per the configured chunk mode. MaxChunks
// folds the remainder into the final chunk.
func (m *MockEndpoint) splitIntoChunks(content string) []string {
	settings := m.config.Settings

	var chunks []string
	switch settings.ChunkMode {
	case "char":
		size := settings.ChunkSize
		if size <= 0 {
			size = 4
		}
		for i := 0; i < len(content); i += size {
			end := i + size
			if end > len(content) {
				end = len(content)
			}
			chunks = append(chunks, content[i:end])
		}

	case "fixed":
		n := settings.MaxChunks
		if n <= 0 {
			n = 1
		}
		size := len(content) / n
		if size == 0 {
			size = 1
		}
		for i := 0; i < len(content); i += size {
			end := i + size
			if end > len(content) {
				end = len(content)
			}
			chunks = append(chunks, content[i:end])
		}

	default: // word
		words := strings.SplitAfter(content, " ")
		chunks = append(chunks, words...)
	}

	if settings.MaxChunks > 0 && len(chunks) > settings.MaxChunks {
		head := chunks[:settings.MaxChunks-1]
		tail := strings.Join(chunks[settings.MaxChunks-1:], "")
		chunks = append(append([]string{}, head...), tail)
	}

	return chunks
}
