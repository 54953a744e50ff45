// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/httpclient"
)

const defaultOpenAIHost = "https://api.openai.com"

// OpenAIProvider implements Provider against the OpenAI chat
// completions API. It also serves openai-compatible gateways via a
// custom base URL.
type OpenAIProvider struct {
	config     *config.LLMConfig
	baseURL    string
	httpClient *httpclient.Client
}

type openAIRequest struct {
	Model         string              `json:"model"`
	Messages      []openAIMessage     `json:"messages"`
	MaxTokens     int                 `json:"max_tokens,omitempty"`
	Temperature   float64             `json:"temperature,omitempty"`
	Stream        bool                `json:"stream"`
	Tools         []openAITool        `json:"tools,omitempty"`
	ToolChoice    string              `json:"tool_choice,omitempty"`
	StreamOptions *openAIStreamOption `json:"stream_options,omitempty"`
}

type openAIStreamOption struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    interface{}      `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAIToolCall struct {
	Index    *int               `json:"index,omitempty"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Choices []openAIChoice `json:"choices"`
	Usage   *openAIUsage   `json:"usage,omitempty"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Index        int            `json:"index"`
	Message      *openAIMessage `json:"message,omitempty"`
	Delta        *openAIDelta   `json:"delta,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
}

type openAIDelta struct {
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []openAIToolCall `json:"tool_calls,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// NewOpenAIProvider creates a provider with the conventional defaults.
func NewOpenAIProvider(apiKey, model string) (*OpenAIProvider, error) {
	cfg := &config.LLMConfig{
		Provider: config.LLMProviderOpenAI,
		Model:    model,
		APIKey:   apiKey,
	}
	cfg.SetDefaults()
	cfg.APIKey = apiKey
	return NewOpenAIProviderFromConfig(cfg)
}

// NewOpenAIProviderFromConfig creates a provider from configuration.
func NewOpenAIProviderFromConfig(cfg *config.LLMConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for OpenAI")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIHost
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	opts := []httpclient.Option{
		httpclient.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		}),
		httpclient.WithMaxRetries(cfg.MaxRetries),
		httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
	}
	if cfg.TLS != nil {
		opts = append(opts, httpclient.WithTLSConfig(&httpclient.TLSConfig{
			InsecureSkipVerify: cfg.TLS.InsecureSkipVerify,
			CACertificate:      cfg.TLS.CACertificate,
		}))
	}

	return &OpenAIProvider{
		config:     cfg,
		baseURL:    baseURL,
		httpClient: httpclient.New(opts...),
	}, nil
}

func (p *OpenAIProvider) GetModelName() string {
	return p.config.Model
}

func (p *OpenAIProvider) GetMaxTokens() int {
	return p.config.MaxTokens
}

func (p *OpenAIProvider) GetTemperature() float64 {
	if p.config.Temperature == nil {
		return 0.7
	}
	return *p.config.Temperature
}

func (p *OpenAIProvider) Close() error {
	return nil
}

// Generate performs a non-streaming chat completion.
func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, tools []ToolDefinition) (string, []*ToolCall, int, error) {
	request := p.buildRequest(messages, false, tools)

	response, err := p.makeRequest(ctx, request)
	if err != nil {
		return "", nil, 0, err
	}

	if response.Error != nil {
		return "", nil, 0, fmt.Errorf("openai API error: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", nil, 0, fmt.Errorf("openai API returned no choices")
	}

	tokensUsed := 0
	if response.Usage != nil {
		tokensUsed = response.Usage.TotalTokens
	}

	choice := response.Choices[0]
	var text string
	var toolCalls []*ToolCall

	if choice.Message != nil {
		if content, ok := choice.Message.Content.(string); ok {
			text = content
		}
		for _, tc := range choice.Message.ToolCalls {
			toolCalls = append(toolCalls, parseOpenAIToolCall(tc))
		}
	}

	return text, toolCalls, tokensUsed, nil
}

// GenerateStreaming performs a streaming chat completion.
func (p *OpenAIProvider) GenerateStreaming(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	request := p.buildRequest(messages, true, tools)

	outputCh := make(chan StreamChunk, 100)

	go func() {
		defer close(outputCh)

		if err := p.makeStreamingRequest(ctx, request, outputCh); err != nil {
			outputCh <- StreamChunk{
				Type:  "error",
				Error: err,
			}
		}
	}()

	return outputCh, nil
}

func (p *OpenAIProvider) buildRequest(messages []Message, stream bool, tools []ToolDefinition) openAIRequest {
	openAIMessages := make([]openAIMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			openAIMessages = append(openAIMessages, openAIMessage{
				Role:    "system",
				Content: msg.Content,
			})

		case RoleUser:
			if len(msg.Parts) > 0 {
				openAIMessages = append(openAIMessages, openAIMessage{
					Role:    "user",
					Content: buildOpenAIParts(msg.Parts),
				})
			} else {
				openAIMessages = append(openAIMessages, openAIMessage{
					Role:    "user",
					Content: msg.Content,
				})
			}

		case RoleAssistant:
			m := openAIMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				args, _ := json.Marshal(tc.Args)
				m.ToolCalls = append(m.ToolCalls, openAIToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openAIFunctionCall{
						Name:      tc.Name,
						Arguments: string(args),
					},
				})
			}
			openAIMessages = append(openAIMessages, m)

		case RoleTool:
			openAIMessages = append(openAIMessages, openAIMessage{
				Role:       "tool",
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		}
	}

	request := openAIRequest{
		Model:       p.config.Model,
		Messages:    openAIMessages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.GetTemperature(),
		Stream:      stream,
	}

	if stream {
		request.StreamOptions = &openAIStreamOption{IncludeUsage: true}
	}

	if len(tools) > 0 {
		openAITools := make([]openAITool, len(tools))
		for i, tool := range tools {
			openAITools[i] = openAITool{
				Type: "function",
				Function: openAIFunction{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			}
		}
		request.Tools = openAITools
	}

	return request
}

func buildOpenAIParts(parts []ContentPart) []openAIContentPart {
	result := make([]openAIContentPart, 0, len(parts))
	for _, part := range parts {
		switch part.Type {
		case ContentPartTypeText:
			result = append(result, openAIContentPart{
				Type: "text",
				Text: part.Text,
			})
		case ContentPartTypeImageURL:
			result = append(result, openAIContentPart{
				Type:     "image_url",
				ImageURL: &openAIImageURL{URL: part.URL},
			})
		case ContentPartTypeImageBase64:
			result = append(result, openAIContentPart{
				Type: "image_url",
				ImageURL: &openAIImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", part.MediaType, part.Data),
				},
			})
		}
	}
	return result
}

func parseOpenAIToolCall(tc openAIToolCall) *ToolCall {
	args := make(map[string]interface{})
	if tc.Function.Arguments != "" {
		// Malformed arguments surface as an empty map; the tool layer
		// reports missing parameters
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
	}
	return &ToolCall{
		ID:   tc.ID,
		Name: tc.Function.Name,
		Args: args,
	}
}

func (p *OpenAIProvider) newRequest(ctx context.Context, jsonData []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(jsonData)), nil
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	return req, nil
}

func (p *OpenAIProvider) makeRequest(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := p.newRequest(ctx, jsonData)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response, nil
}

func (p *OpenAIProvider) makeStreamingRequest(ctx context.Context, request openAIRequest, outputCh chan<- StreamChunk) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := p.newRequest(ctx, jsonData)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// Tool call fragments arrive keyed by index and must be
	// accumulated until the stream finishes
	toolCalls := make(map[int]*openAIToolCall)
	var totalTokens int

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var streamResp openAIResponse
		if err := json.Unmarshal([]byte(payload), &streamResp); err != nil {
			return fmt.Errorf("failed to decode streaming response: %w, data: %s", err, payload)
		}

		if streamResp.Error != nil {
			return fmt.Errorf("openai API error: %s", streamResp.Error.Message)
		}

		if streamResp.Usage != nil {
			totalTokens = streamResp.Usage.TotalTokens
		}

		for _, choice := range streamResp.Choices {
			if choice.Delta == nil {
				continue
			}

			if choice.Delta.Content != "" {
				outputCh <- StreamChunk{Type: "text", Text: choice.Delta.Content}
			}

			for _, tc := range choice.Delta.ToolCalls {
				index := 0
				if tc.Index != nil {
					index = *tc.Index
				}

				existing, ok := toolCalls[index]
				if !ok {
					copied := tc
					toolCalls[index] = &copied
					continue
				}

				if tc.ID != "" {
					existing.ID = tc.ID
				}
				if tc.Function.Name != "" {
					existing.Function.Name = tc.Function.Name
				}
				existing.Function.Arguments += tc.Function.Arguments
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read streaming response: %w", err)
	}

	for i := 0; i < len(toolCalls); i++ {
		if tc, ok := toolCalls[i]; ok {
			outputCh <- StreamChunk{
				Type:     "tool_call",
				ToolCall: parseOpenAIToolCall(*tc),
			}
		}
	}

	outputCh <- StreamChunk{
		Type:   "done",
		Tokens: totalTokens,
	}

	return nil
}
