package llm

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ModelConfig identifies the chat deployment and its sampling parameters.
// It is built once from configuration and never modified.
type ModelConfig struct {
	Endpoint    string
	Deployment  string
	APIVersion  string
	Temperature float64
	MaxTokens   int
}

// CompletionRequest contains the parameters for an LLM completion request.
// Zero Model, Temperature or MaxTokens fall back to the provider's ModelConfig.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
