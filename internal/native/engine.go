// Package native provides the built-in model engines backing the
// PromptLab aliases. When a profile's endpoint names one of the aliases
// instead of a URL, invocation is routed to the default engine here
// rather than over raw HTTP.
package native

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// Aliases recognized as the built-in capability. Matching is
// case-insensitive and ignores surrounding whitespace.
var aliases = map[string]struct{}{
	"raycast ai": {},
	"raycastai":  {},
	"raycast-ai": {},
	"raycast":    {},
}

// IsAlias reports whether endpoint names the built-in capability
// rather than a remote URL.
func IsAlias(endpoint string) bool {
	_, ok := aliases[strings.ToLower(strings.TrimSpace(endpoint))]
	return ok
}

// Engine represents a built-in model backend with an Eino ChatModel.
type Engine interface {
	// ID returns the engine identifier.
	ID() string

	// Name returns the human-readable engine name.
	Name() string

	// ChatModel returns the Eino ChatModel for this engine.
	ChatModel() model.ToolCallingChatModel

	// Complete creates a streaming completion.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []*schema.Message `json:"messages"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a new completion stream.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk from the stream.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// PromptRequest builds a single-turn completion request for prompt.
func PromptRequest(prompt string, maxTokens int, temperature float64) *CompletionRequest {
	return &CompletionRequest{
		Messages: []*schema.Message{
			{Role: schema.User, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Registry manages the configured engines.
type Registry struct {
	mu        sync.RWMutex
	engines   map[string]Engine
	defaultID string
}

// NewRegistry creates an empty engine registry. defaultID names the
// engine Default should prefer; it may be empty.
func NewRegistry(defaultID string) *Registry {
	return &Registry{
		engines:   make(map[string]Engine),
		defaultID: defaultID,
	}
}

// Register adds an engine to the registry.
func (r *Registry) Register(engine Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[engine.ID()] = engine
}

// Get retrieves an engine by ID.
func (r *Registry) Get(engineID string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[engineID]
	if !ok {
		return nil, fmt.Errorf("engine not found: %s", engineID)
	}
	return engine, nil
}

// List returns all registered engines.
func (r *Registry) List() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	return engines
}

// Default returns the engine backing the built-in aliases. When no
// default is configured the first registered engine wins, in a fixed
// preference order so the choice is stable across runs.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultID != "" {
		engine, ok := r.engines[r.defaultID]
		if !ok {
			return nil, fmt.Errorf("engine not found: %s", r.defaultID)
		}
		return engine, nil
	}

	for _, id := range []string{"claude", "openai", "ark"} {
		if engine, ok := r.engines[id]; ok {
			return engine, nil
		}
	}

	return nil, fmt.Errorf("no engine configured")
}

// InitializeEngines creates and registers all engines from config.
// Engines whose credentials are missing are skipped rather than
// failing the whole registry.
func InitializeEngines(ctx context.Context, config *types.EnginesConfig) (*Registry, error) {
	if config == nil {
		return NewRegistry(""), nil
	}

	registry := NewRegistry(config.Default)

	if cfg := config.Claude; cfg != nil && !cfg.Disable {
		engine, err := NewClaudeEngine(ctx, cfg)
		if err == nil {
			registry.Register(engine)
		}
	}

	if cfg := config.OpenAI; cfg != nil && !cfg.Disable {
		engine, err := NewOpenAIEngine(ctx, cfg)
		if err == nil {
			registry.Register(engine)
		}
	}

	if cfg := config.Ark; cfg != nil && !cfg.Disable {
		engine, err := NewArkEngine(ctx, cfg)
		if err == nil {
			registry.Register(engine)
		}
	}

	return registry, nil
}
