package testutil

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MockEndpointConfig defines the YAML configuration schema for mock
// endpoint scenarios.
type MockEndpointConfig struct {
	Settings  MockSettings   `yaml:"settings"`
	Defaults  MockDefaults   `yaml:"defaults"`
	Responses []ResponseRule `yaml:"responses"`
}

// MockSettings configures mock endpoint behavior.
type MockSettings struct {
	LagMS        int    `yaml:"lag_ms"`         // Artificial delay before responding
	ChunkDelayMS int    `yaml:"chunk_delay_ms"` // Delay between streamed chunks
	ChunkMode    string `yaml:"chunk_mode"`     // word, char or fixed
	ChunkSize    int    `yaml:"chunk_size"`     // Chunk size for char mode
	MaxChunks    int    `yaml:"max_chunks"`     // Cap on chunk count, 0 = unlimited
}

// MockDefaults defines fallback behavior.
type MockDefaults struct {
	Fallback string `yaml:"fallback"` // Response when no rules match
}

// ResponseRule defines a prompt-to-response mapping.
type ResponseRule struct {
	Name     string      `yaml:"name"`     // Optional rule name for debugging
	Match    MatchConfig `yaml:"match"`    // How to match the prompt
	Response string      `yaml:"response"` // The response to return
	Priority int         `yaml:"priority"` // Higher priority rules win
}

// MatchConfig defines how to match a prompt.
type MatchConfig struct {
	// Simple string matching (case-insensitive contains)
	Contains string `yaml:"contains"`

	// All strings must be present (case-insensitive)
	ContainsAll []string `yaml:"contains_all"`

	// Any string must be present (case-insensitive)
	ContainsAny []string `yaml:"contains_any"`

	// Exact match (case-insensitive)
	Exact string `yaml:"exact"`
}

// DefaultMockEndpointConfig returns the default configuration with the
// scenarios the suites rely on.
func DefaultMockEndpointConfig() *MockEndpointConfig {
	return &MockEndpointConfig{
		Settings: MockSettings{
			LagMS:        0,
			ChunkDelayMS: 5,
			ChunkMode:    "word",
		},
		Defaults: MockDefaults{
			Fallback: "I understand your request. Let me help you with that.",
		},
		Responses: []ResponseRule{
			{
				Name:     "hello-world",
				Match:    MatchConfig{Contains: "hello, world"},
				Response: "Hello, World!",
				Priority: 10,
			},
			{
				Name:     "math-2plus2",
				Match:    MatchConfig{ContainsAny: []string{"2+2", "2 + 2"}},
				Response: "4",
				Priority: 10,
			},
			{
				Name:     "say-ok",
				Match:    MatchConfig{Contains: "say ok"},
				Response: "OK",
				Priority: 10,
			},
			{
				Name:     "summarize",
				Match:    MatchConfig{Contains: "summarize"},
				Response: "A concise summary of the provided material.",
				Priority: 10,
			},
			{
				Name:     "product-pitch",
				Match:    MatchConfig{ContainsAll: []string{"describe", "promptlab"}},
				Response: "PromptLab turns prompts into reusable pipelines.",
				Priority: 5,
			},
			{
				Name:     "longform",
				Match:    MatchConfig{Contains: "write a story"},
				Response: "Once upon a time a prompt walked into an endpoint and came back a response.",
				Priority: 5,
			},
			{
				Name:     "simple-hello",
				Match:    MatchConfig{Contains: "hello"},
				Response: "Hello! How can I help you today?",
				Priority: 1,
			},
		},
	}
}

// LoadMockEndpointConfig loads configuration from a YAML file.
func LoadMockEndpointConfig(path string) (*MockEndpointConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config MockEndpointConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadMockEndpointConfigFromDir looks for mockendpoint.yaml in the given
// directory.
func LoadMockEndpointConfigFromDir(dir string) (*MockEndpointConfig, error) {
	path := filepath.Join(dir, "mockendpoint.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = filepath.Join(dir, "mockendpoint.yml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, err
		}
	}
	return LoadMockEndpointConfig(path)
}

// SaveMockEndpointConfig saves configuration to a YAML file.
func SaveMockEndpointConfig(config *MockEndpointConfig, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Matches checks if the prompt matches this rule.
func (m *MatchConfig) Matches(prompt string) bool {
	promptLower := strings.ToLower(prompt)

	if m.Exact != "" {
		return strings.EqualFold(prompt, m.Exact)
	}

	if m.Contains != "" {
		return strings.Contains(promptLower, strings.ToLower(m.Contains))
	}

	if len(m.ContainsAll) > 0 {
		for _, s := range m.ContainsAll {
			if !strings.Contains(promptLower, strings.ToLower(s)) {
				return false
			}
		}
		return true
	}

	if len(m.ContainsAny) > 0 {
		for _, s := range m.ContainsAny {
			if strings.Contains(promptLower, strings.ToLower(s)) {
				return true
			}
		}
		return false
	}

	return false
}

// FindMatchingResponse finds the highest-priority matching response rule
// for a prompt, falling back to the default when nothing matches.
func (c *MockEndpointConfig) FindMatchingResponse(prompt string) (string, bool) {
	var bestMatch *ResponseRule
	bestPriority := -1

	for i := range c.Responses {
		rule := &c.Responses[i]
		if rule.Match.Matches(prompt) {
			if rule.Priority > bestPriority {
				bestMatch = rule
				bestPriority = rule.Priority
			}
		}
	}

	if bestMatch != nil {
		return bestMatch.Response, true
	}

	return c.Defaults.Fallback, false
}
