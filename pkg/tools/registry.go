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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/registry"
)

var (
	toolExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "persona",
		Subsystem: "tools",
		Name:      "executions_total",
		Help:      "Tool executions by tool name and outcome.",
	}, []string{"tool", "outcome"})

	toolDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "persona",
		Subsystem: "tools",
		Name:      "execution_duration_seconds",
		Help:      "Tool execution latency.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Registry is the name-keyed tool registry. Execute runs guardrails,
// then the tool under a per-tool timeout, converting timeouts and
// panics into structured failure results.
type Registry struct {
	*registry.BaseRegistry[Tool]

	guardrails *Guardrails
	timeouts   map[string]time.Duration

	fileTimeout        time.Duration
	spreadsheetTimeout time.Duration
}

// NewRegistry builds a registry with the built-in file and spreadsheet
// tools. cfg.Enabled, when non-empty, restricts which built-ins are
// registered. MCP sources from cfg.MCP are registered afterwards;
// failures there are logged and skipped so a dead server does not take
// the built-ins down with it.
func NewRegistry(cfg *config.ToolsConfig) (*Registry, error) {
	if cfg == nil {
		cfg = &config.ToolsConfig{}
	}
	cfg.SetDefaults()

	r := &Registry{
		BaseRegistry:       registry.NewBaseRegistry[Tool](),
		guardrails:         NewGuardrails(cfg.MaxCallsPerTurn, cfg.MaxWriteBytes, cfg.BlockedPaths),
		timeouts:           make(map[string]time.Duration),
		fileTimeout:        time.Duration(cfg.FileTimeout) * time.Second,
		spreadsheetTimeout: time.Duration(cfg.SpreadsheetTimeout) * time.Second,
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = "."
	}

	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		enabled[name] = true
	}

	builtins := []struct {
		tool    Tool
		timeout time.Duration
	}{
		{NewReadFileTool(workDir), r.fileTimeout},
		{NewWriteFileTool(workDir), r.fileTimeout},
		{NewListDirectoryTool(workDir), r.fileTimeout},
		{NewDeleteFileTool(workDir), r.fileTimeout},
		{NewMoveFileTool(workDir), r.fileTimeout},
		{NewReadSpreadsheetTool(workDir), r.spreadsheetTimeout},
		{NewWriteSpreadsheetTool(workDir), r.spreadsheetTimeout},
	}

	for _, b := range builtins {
		name := b.tool.GetName()
		if len(enabled) > 0 && !enabled[name] {
			continue
		}
		if err := r.RegisterTool(b.tool, b.timeout); err != nil {
			return nil, err
		}
	}

	for _, server := range cfg.MCP {
		source := NewMCPToolSource(server)
		if err := r.RegisterSource(context.Background(), source); err != nil {
			slog.Warn("Skipping MCP tool source", "source", server.Name, "error", err)
		}
	}

	return r, nil
}

// RegisterTool adds a tool under its own name with the given timeout.
func (r *Registry) RegisterTool(tool Tool, timeout time.Duration) error {
	name := tool.GetName()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if err := r.Register(name, tool); err != nil {
		return fmt.Errorf("failed to register tool %s: %w", name, err)
	}
	r.timeouts[name] = timeout
	return nil
}

// RegisterSource discovers a source's tools and registers each one.
func (r *Registry) RegisterSource(ctx context.Context, source ToolSource) error {
	if err := source.DiscoverTools(ctx); err != nil {
		return fmt.Errorf("failed to discover tools from %s: %w", source.GetName(), err)
	}
	for _, info := range source.ListTools() {
		tool, ok := source.GetTool(info.Name)
		if !ok {
			continue
		}
		if _, exists := r.Get(info.Name); exists {
			slog.Warn("Tool name conflict, skipping", "tool", info.Name, "source", source.GetName())
			continue
		}
		// External tools get the longer budget.
		if err := r.RegisterTool(tool, r.spreadsheetTimeout); err != nil {
			return err
		}
	}
	return nil
}

// Guardrails returns the session guardrails so the orchestrator can
// reset counters at the start of each turn.
func (r *Registry) Guardrails() *Guardrails {
	return r.guardrails
}

// ListTools returns definitions for every registered tool, sorted by
// name for stable prompt ordering.
func (r *Registry) ListTools() []ToolInfo {
	var infos []ToolInfo
	for _, tool := range r.List() {
		infos = append(infos, tool.GetInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Execute runs one tool call. Guardrail rejections, timeouts, and
// panics all come back as failed ToolResults with a nil error so the
// caller can feed them to the model; only an unknown tool name is an
// error in the Go sense as well.
func (r *Registry) Execute(ctx context.Context, toolName string, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	tool, exists := r.Get(toolName)
	if !exists {
		err := fmt.Errorf("tool %s not found", toolName)
		toolExecutions.WithLabelValues(toolName, "not_found").Inc()
		return failureResult(toolName, err.Error(), start), err
	}

	if err := r.guardrails.Check(toolName, args); err != nil {
		slog.Warn("Tool call rejected", "tool", toolName, "error", err)
		toolExecutions.WithLabelValues(toolName, "rejected").Inc()
		return failureResult(toolName, err.Error(), start), nil
	}

	timeout, ok := r.timeouts[toolName]
	if !ok {
		timeout = r.fileTimeout
	}

	result := r.run(ctx, tool, args, timeout, start)
	result.ToolName = toolName
	result.ExecutionTime = time.Since(start)

	if r.guardrails.NeedsConfirmation(toolName) {
		if result.Metadata == nil {
			result.Metadata = make(map[string]interface{})
		}
		result.Metadata["needs_confirmation"] = true
	}

	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	toolExecutions.WithLabelValues(toolName, outcome).Inc()
	toolDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

func (r *Registry) run(ctx context.Context, tool Tool, args map[string]interface{}, timeout time.Duration, start time.Time) ToolResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result ToolResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Tool panicked", "tool", tool.GetName(), "panic", rec)
				done <- outcome{
					result: failureResult(tool.GetName(), fmt.Sprintf("tool fault: %v", rec), start),
				}
			}
		}()
		result, err := tool.Execute(ctx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && out.result.Error == "" {
			out.result.Success = false
			out.result.Error = out.err.Error()
		}
		return out.result
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return failureResult(tool.GetName(),
				fmt.Sprintf("tool timed out after %s", timeout), start)
		}
		return failureResult(tool.GetName(), "tool cancelled", start)
	}
}
