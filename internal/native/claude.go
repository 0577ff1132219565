package native

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// ClaudeEngine implements Engine for Anthropic Claude models.
type ClaudeEngine struct {
	chatModel model.ToolCallingChatModel
	config    *types.EngineConfig
}

// NewClaudeEngine creates a new Claude engine.
func NewClaudeEngine(ctx context.Context, config *types.EngineConfig) (*ClaudeEngine, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = defaultClaudeModel
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	cfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = &config.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return &ClaudeEngine{
		chatModel: chatModel,
		config:    config,
	}, nil
}

// ID returns the engine identifier.
func (e *ClaudeEngine) ID() string { return "claude" }

// Name returns the human-readable engine name.
func (e *ClaudeEngine) Name() string { return "Claude" }

// ChatModel returns the Eino ChatModel.
func (e *ClaudeEngine) ChatModel() model.ToolCallingChatModel {
	return e.chatModel
}

// Complete creates a streaming completion. Zero request limits defer
// to the engine's configured defaults.
func (e *ClaudeEngine) Complete(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = e.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 8192
	}

	temperature := req.Temperature
	if temperature == 0 && e.config.Temperature != nil {
		temperature = *e.config.Temperature
	}

	stream, err := e.chatModel.Stream(ctx, req.Messages,
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(float32(temperature)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return NewCompletionStream(stream), nil
}
