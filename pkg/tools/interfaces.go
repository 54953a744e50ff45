// Copyright 2026 The open-persona Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tools exposes callable tools to the model: a name-keyed
// registry, pre-execution guardrails, file and spreadsheet tools, and
// an optional MCP source for external tool servers.
package tools

import (
	"context"
	"fmt"
	"time"
)

// Tool is a callable capability exposed to the model.
type Tool interface {
	GetInfo() ToolInfo
	GetName() string
	GetDescription() string
	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)
}

// ToolInfo describes a tool for the model's tool definitions.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	ServerURL   string          `json:"server_url,omitempty"`
}

// ToolParameter describes one argument of a tool.
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
}

// ToolResult is the structured outcome of one tool execution. Failures
// are results too so the model can read the error and adjust.
type ToolResult struct {
	Success       bool                   `json:"success"`
	Content       string                 `json:"content"`
	Error         string                 `json:"error,omitempty"`
	ToolName      string                 `json:"tool_name"`
	ExecutionTime time.Duration          `json:"execution_time"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ToolSource provides tools discovered from somewhere external, such
// as an MCP server.
type ToolSource interface {
	GetName() string
	GetType() string
	DiscoverTools(ctx context.Context) error
	ListTools() []ToolInfo
	GetTool(name string) (Tool, bool)
}

func failureResult(toolName, msg string, start time.Time) ToolResult {
	return ToolResult{
		Success:       false,
		Error:         msg,
		ToolName:      toolName,
		ExecutionTime: time.Since(start),
	}
}

func successResult(toolName, content string, start time.Time, meta map[string]interface{}) ToolResult {
	return ToolResult{
		Success:       true,
		Content:       content,
		ToolName:      toolName,
		ExecutionTime: time.Since(start),
		Metadata:      meta,
	}
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return v, nil
}
