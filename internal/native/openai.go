package native

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIEngine implements Engine for OpenAI models.
type OpenAIEngine struct {
	chatModel model.ToolCallingChatModel
	config    *types.EngineConfig
}

// NewOpenAIEngine creates a new OpenAI engine.
func NewOpenAIEngine(ctx context.Context, config *types.EngineConfig) (*OpenAIEngine, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		if config.ByAzure {
			apiKey = os.Getenv("AZURE_OPENAI_API_KEY")
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelID := config.Model
	if modelID == "" {
		modelID = os.Getenv("OPENAI_MODEL_ID")
	}
	if modelID == "" {
		modelID = defaultOpenAIModel
	}

	cfg := &openai.ChatModelConfig{
		APIKey:              apiKey,
		Model:               modelID,
		MaxCompletionTokens: &maxTokens, // Use MaxCompletionTokens for GPT-5 compatibility
	}

	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}

	if config.ByAzure {
		cfg.ByAzure = true
		if config.APIVersion != "" {
			cfg.APIVersion = config.APIVersion
		} else {
			cfg.APIVersion = "2024-02-15-preview"
		}
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return &OpenAIEngine{
		chatModel: chatModel,
		config:    config,
	}, nil
}

// ID returns the engine identifier.
func (e *OpenAIEngine) ID() string { return "openai" }

// Name returns the human-readable engine name.
func (e *OpenAIEngine) Name() string { return "OpenAI" }

// ChatModel returns the Eino ChatModel.
func (e *OpenAIEngine) ChatModel() model.ToolCallingChatModel {
	return e.chatModel
}

// Complete creates a streaming completion. Zero request limits defer
// to the engine's configured defaults.
func (e *OpenAIEngine) Complete(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
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

	// GPT-5 models require max_completion_tokens instead of max_tokens
	opts := []model.Option{
		openai.WithMaxCompletionTokens(maxTokens),
	}
	if temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(temperature)))
	}

	stream, err := e.chatModel.Stream(ctx, req.Messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return NewCompletionStream(stream), nil
}
