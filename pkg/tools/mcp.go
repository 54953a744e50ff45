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

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

const mcpProtocolVersion = "2024-11-05"

// MCPToolSource exposes the tools of one external MCP server through
// the registry. Tool names are prefixed with the server name to avoid
// collisions with built-ins.
type MCPToolSource struct {
	name string
	url  string

	mu     sync.RWMutex
	client *client.Client
	tools  map[string]Tool
}

func NewMCPToolSource(cfg config.MCPServerConfig) *MCPToolSource {
	return &MCPToolSource{
		name:  cfg.Name,
		url:   cfg.URL,
		tools: make(map[string]Tool),
	}
}

func (s *MCPToolSource) GetName() string { return s.name }

func (s *MCPToolSource) GetType() string { return "mcp" }

// DiscoverTools connects, initializes the MCP session, and lists the
// server's tools. Safe to call again to refresh.
func (s *MCPToolSource) DiscoverTools(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		c, err := client.NewStreamableHttpClient(s.url)
		if err != nil {
			return fmt.Errorf("failed to create MCP client for %s: %w", s.name, err)
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MCP client for %s: %w", s.name, err)
		}

		initReq := mcp.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcpProtocolVersion
		initReq.Params.ClientInfo = mcp.Implementation{
			Name:    "open-persona",
			Version: "1.0.0",
		}
		if _, err := c.Initialize(ctx, initReq); err != nil {
			_ = c.Close()
			return fmt.Errorf("failed to initialize MCP session with %s: %w", s.name, err)
		}
		s.client = c
	}

	listResp, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list tools from %s: %w", s.name, err)
	}

	s.tools = make(map[string]Tool, len(listResp.Tools))
	for _, remote := range listResp.Tools {
		t := &mcpTool{
			source:      s,
			remoteName:  remote.Name,
			name:        fmt.Sprintf("%s_%s", s.name, remote.Name),
			description: remote.Description,
			params:      convertMCPSchema(remote.InputSchema),
		}
		s.tools[t.name] = t
	}

	slog.Info("Discovered MCP tools", "source", s.name, "url", s.url, "tools", len(s.tools))
	return nil
}

func (s *MCPToolSource) ListTools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.GetInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *MCPToolSource) GetTool(name string) (Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

// Close shuts down the MCP session.
func (s *MCPToolSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	s.tools = make(map[string]Tool)
	return err
}

// mcpTool adapts one remote MCP tool to the Tool interface.
type mcpTool struct {
	source      *MCPToolSource
	remoteName  string
	name        string
	description string
	params      []ToolParameter
}

func (t *mcpTool) GetName() string { return t.name }

func (t *mcpTool) GetDescription() string { return t.description }

func (t *mcpTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.params,
		ServerURL:   t.source.url,
	}
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	t.source.mu.RLock()
	c := t.source.client
	t.source.mu.RUnlock()
	if c == nil {
		return failureResult(t.name, "MCP client not connected", start), nil
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.remoteName
	req.Params.Arguments = args

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return failureResult(t.name, fmt.Sprintf("MCP call failed: %v", err), start), nil
	}

	text := collectTextContent(resp.Content)
	if resp.IsError {
		msg := text
		if msg == "" {
			msg = "unknown MCP error"
		}
		return failureResult(t.name, msg, start), nil
	}

	return successResult(t.name, text, start, map[string]interface{}{
		"source": t.source.name,
	}), nil
}

func collectTextContent(content []mcp.Content) string {
	var texts []string
	for _, c := range content {
		if tc, ok := c.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func convertMCPSchema(schema mcp.ToolInputSchema) []ToolParameter {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	params := make([]ToolParameter, 0, len(schema.Properties))
	for name, raw := range schema.Properties {
		p := ToolParameter{Name: name, Required: required[name]}
		if prop, ok := raw.(map[string]interface{}); ok {
			p.Type, _ = prop["type"].(string)
			p.Description, _ = prop["description"].(string)
		}
		if p.Type == "" {
			p.Type = "string"
		}
		params = append(params, p)
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}
