// Package llms defines the LLM provider port and its OpenAI and
// Anthropic implementations. Providers stream responses as chunks and
// surface tool calls to the orchestration loop.
package llms

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ContentPartType string

const (
	ContentPartTypeText        ContentPartType = "text"
	ContentPartTypeImageURL    ContentPartType = "image_url"
	ContentPartTypeImageBase64 ContentPartType = "image_base64"
)

// ContentPart is one element of a multi-part (multimodal) message.
type ContentPart struct {
	Type      ContentPartType `json:"type"`
	Text      string          `json:"text,omitempty"`
	MediaType string          `json:"media_type,omitempty"`
	Data      string          `json:"data,omitempty"`
	URL       string          `json:"url,omitempty"`
}

// Message is a provider-neutral conversation message.
type Message struct {
	Role    Role
	Content string

	// Parts carries multimodal content for user messages. When set,
	// Content is ignored by the providers.
	Parts []ContentPart

	// ToolCalls are set on assistant messages that requested tools.
	ToolCalls []*ToolCall

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string
}

// ToolCall is a provider-parsed request to execute one tool.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// StreamChunk is one unit of a streaming response.
// Type is one of "text", "thinking", "tool_call", "done", "error".
type StreamChunk struct {
	Type     string
	Text     string
	ToolCall *ToolCall
	Tokens   int
	Error    error
}

// Provider is the outbound LLM port.
type Provider interface {
	// Generate performs a non-streaming request.
	// Returns text, tool calls and total tokens used.
	Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []*ToolCall, int, error)

	GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error)

	GetModelName() string

	GetMaxTokens() int

	GetTemperature() float64

	Close() error
}

// QuickCall runs a single system+user exchange with no tools and
// returns the text. Used for classification-style calls (reranking,
// intent) that never stream.
func QuickCall(ctx context.Context, provider Provider, system, user string) (string, error) {
	messages := []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
	text, _, _, err := provider.Generate(ctx, messages, nil)
	return text, err
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a plain text user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant message, optionally carrying
// tool calls.
func AssistantMessage(content string, toolCalls []*ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

// ToolResultMessage builds the tool-role reply to a tool call.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}
