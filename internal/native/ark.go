package native

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

// ArkEngine implements Engine for Volcengine ARK models.
type ArkEngine struct {
	chatModel model.ToolCallingChatModel
	config    *types.EngineConfig
}

// NewArkEngine creates a new ARK engine.
func NewArkEngine(ctx context.Context, config *types.EngineConfig) (*ArkEngine, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}

	if apiKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = os.Getenv("ARK_MODEL_ID")
	}

	if modelID == "" {
		return nil, fmt.Errorf("ARK_MODEL_ID not set")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("ARK_BASE_URL")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	cfg := &ark.ChatModelConfig{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: &maxTokens,
	}

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARK model: %w", err)
	}

	return &ArkEngine{
		chatModel: chatModel,
		config:    config,
	}, nil
}

// ID returns the engine identifier.
func (e *ArkEngine) ID() string { return "ark" }

// Name returns the human-readable engine name.
func (e *ArkEngine) Name() string { return "ARK" }

// ChatModel returns the Eino ChatModel.
func (e *ArkEngine) ChatModel() model.ToolCallingChatModel {
	return e.chatModel
}

// Complete creates a streaming completion. Zero request limits defer
// to the engine's configured defaults.
func (e *ArkEngine) Complete(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = e.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 4096
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
