package llms

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

func newTestAnthropicProvider(t *testing.T, serverURL string) *AnthropicProvider {
	t.Helper()
	cfg := &config.LLMConfig{
		Provider: config.LLMProviderAnthropic,
		Model:    "claude-3-5-haiku-20241022",
		APIKey:   "test-key",
		BaseURL:  serverURL,
	}
	cfg.SetDefaults()
	cfg.BaseURL = serverURL

	provider, err := NewAnthropicProviderFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewAnthropicProviderFromConfig() error = %v", err)
	}
	return provider
}

func TestAnthropicProvider_BuildRequest(t *testing.T) {
	provider := newTestAnthropicProvider(t, "http://localhost")

	messages := []Message{
		SystemMessage("You are a spreadsheet assistant."),
		SystemMessage("Context: use the provided snippets."),
		UserMessage("What does VLOOKUP do?"),
		AssistantMessage("Let me check.", []*ToolCall{
			{ID: "toolu_1", Name: "read_spreadsheet", Args: map[string]interface{}{"sheet": "A"}},
		}),
		ToolResultMessage("toolu_1", "sheet content"),
	}

	request := provider.buildRequest(messages, false, nil)

	// System messages merge into the system field, never the turn list
	if request.System != "You are a spreadsheet assistant.\n\nContext: use the provided snippets." {
		t.Errorf("System = %q", request.System)
	}
	if len(request.Messages) != 3 {
		t.Fatalf("Messages count = %d, want 3", len(request.Messages))
	}

	assistant := request.Messages[1]
	if assistant.Role != "assistant" {
		t.Errorf("role = %s, want assistant", assistant.Role)
	}
	contents, ok := assistant.Content.([]anthropicContent)
	if !ok || len(contents) != 2 {
		t.Fatalf("assistant content = %+v, want text + tool_use", assistant.Content)
	}
	if contents[1].Type != "tool_use" || contents[1].ID != "toolu_1" {
		t.Errorf("tool_use block = %+v", contents[1])
	}

	toolResult := request.Messages[2]
	if toolResult.Role != "user" {
		t.Errorf("tool result role = %s, want user", toolResult.Role)
	}
	resultContents := toolResult.Content.([]anthropicContent)
	if resultContents[0].Type != "tool_result" || resultContents[0].ToolUseID != "toolu_1" {
		t.Errorf("tool_result block = %+v", resultContents[0])
	}
}

func TestAnthropicProvider_GenerateStreaming(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key missing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		events := []string{
			`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"usage":{"input_tokens":10,"output_tokens":0}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Sum"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" it."}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_2","name":"write_spreadsheet","input":{}}}`,
			`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"sheet\":"}}`,
			`{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"B\"}"}}`,
			`{"type":"content_block_stop","index":1}`,
			`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":25}}`,
			`{"type":"message_stop"}`,
		}
		for _, event := range events {
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}))
	defer server.Close()

	provider := newTestAnthropicProvider(t, server.URL)

	chunks, err := provider.GenerateStreaming(context.Background(),
		[]Message{UserMessage("sum column B")}, nil)
	if err != nil {
		t.Fatalf("GenerateStreaming() error = %v", err)
	}

	var text string
	var toolCalls []*ToolCall
	var doneTokens int
	for chunk := range chunks {
		switch chunk.Type {
		case "text":
			text += chunk.Text
		case "tool_call":
			toolCalls = append(toolCalls, chunk.ToolCall)
		case "done":
			doneTokens = chunk.Tokens
		case "error":
			t.Fatalf("unexpected error chunk: %v", chunk.Error)
		}
	}

	if text != "Sum it." {
		t.Errorf("streamed text = %q", text)
	}
	if len(toolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(toolCalls))
	}
	if toolCalls[0].Name != "write_spreadsheet" {
		t.Errorf("tool call name = %s", toolCalls[0].Name)
	}
	if sheet, _ := toolCalls[0].Args["sheet"].(string); sheet != "B" {
		t.Errorf("accumulated input = %+v, want sheet B", toolCalls[0].Args)
	}
	if doneTokens != 25 {
		t.Errorf("done tokens = %d, want 25", doneTokens)
	}
}

func TestAnthropicProvider_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"permission_error","message":"forbidden"}}`))
	}))
	defer server.Close()

	provider := newTestAnthropicProvider(t, server.URL)

	_, _, _, err := provider.Generate(context.Background(),
		[]Message{UserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("Generate() error = nil, want HTTP 403 error")
	}
}
