package llm

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/docchat/internal/retry"
)

// OpenAIProvider implements Provider using the Chat Completions API, either
// on api.openai.com or on an Azure OpenAI deployment.
type OpenAIProvider struct {
	client *openai.Client
	name   string
	model  ModelConfig
}

// NewAzureProvider creates a provider for an Azure OpenAI deployment.
// model.Deployment is sent verbatim as the deployment name.
func NewAzureProvider(apiKey string, model ModelConfig) *OpenAIProvider {
	cfg := openai.DefaultAzureConfig(apiKey, model.Endpoint)
	if model.APIVersion != "" {
		cfg.APIVersion = model.APIVersion
	}
	cfg.AzureModelMapperFunc = func(m string) string { return m }
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		name:   "azure",
		model:  model,
	}
}

// NewOpenAIProvider creates a provider for the public OpenAI API. A
// non-empty model.Endpoint overrides the base URL.
func NewOpenAIProvider(apiKey string, model ModelConfig) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if model.Endpoint != "" {
		cfg.BaseURL = model.Endpoint
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		name:   "openai",
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the provider's model configuration.
func (p *OpenAIProvider) Model() ModelConfig {
	return p.model
}

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model.Deployment
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.model.MaxTokens
	}

	temperature := p.model.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	})
	if err != nil {
		return nil, err
	}

	var content, finishReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		FinishReason: finishReason,
	}, nil
}

// IsTransient reports API errors that are worth one more attempt: rate
// limiting and server-side failures.
func IsTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retry.IsRetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retry.IsRetryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}
