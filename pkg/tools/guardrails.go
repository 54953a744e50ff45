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
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// systemBlockedPaths are always rejected regardless of configuration.
var systemBlockedPaths = []string{
	"/etc",
	"/sys",
	"/proc",
	"/boot",
	"/dev",
	"/usr/bin",
	"/usr/sbin",
	"/var/run",
}

// credentialDirNames are blocked under any home directory.
var credentialDirNames = []string{
	".ssh",
	".aws",
	".gnupg",
	".kube",
	".docker",
}

// pathArgKeys are the argument names guardrails treat as path-like.
var pathArgKeys = []string{"path", "source", "destination", "directory"}

// destructiveTools require user confirmation in the surrounding UI.
// The flag is surfaced on the result; it does not block execution.
var destructiveTools = map[string]bool{
	"write_file":        true,
	"delete_file":       true,
	"move_file":         true,
	"write_spreadsheet": true,
}

// GuardrailError is a pre-execution denial. It reaches the model as a
// tool-result error string, never as a crash.
type GuardrailError struct {
	Tool   string
	Check  string
	Reason string
}

func (e *GuardrailError) Error() string {
	return fmt.Sprintf("tool %s rejected by %s guardrail: %s", e.Tool, e.Check, e.Reason)
}

// Guardrails validates tool calls before execution. Checks run in
// order: session call ceiling, path blocklist, write size. A rejected
// call does not consume the session call budget.
type Guardrails struct {
	maxCalls      int
	maxWriteBytes int
	blocked       []string

	mu    sync.Mutex
	calls int
}

func NewGuardrails(maxCalls, maxWriteBytes int, extraBlocked []string) *Guardrails {
	blocked := make([]string, 0, len(systemBlockedPaths)+len(extraBlocked))
	blocked = append(blocked, systemBlockedPaths...)
	for _, p := range extraBlocked {
		if abs, err := filepath.Abs(p); err == nil {
			blocked = append(blocked, abs)
		}
	}
	return &Guardrails{
		maxCalls:      maxCalls,
		maxWriteBytes: maxWriteBytes,
		blocked:       blocked,
	}
}

// Check validates one call and, when it passes every check, consumes
// one unit of the session call budget.
func (g *Guardrails) Check(toolName string, args map[string]interface{}) error {
	g.mu.Lock()
	atCeiling := g.calls >= g.maxCalls
	g.mu.Unlock()

	if atCeiling {
		return &GuardrailError{
			Tool:   toolName,
			Check:  "call-ceiling",
			Reason: fmt.Sprintf("session tool call limit of %d reached", g.maxCalls),
		}
	}

	for _, key := range pathArgKeys {
		raw, ok := args[key].(string)
		if !ok || raw == "" {
			continue
		}
		if err := g.checkPath(toolName, raw); err != nil {
			return err
		}
	}

	if content, ok := args["content"].(string); ok && len(content) > g.maxWriteBytes {
		return &GuardrailError{
			Tool:   toolName,
			Check:  "write-size",
			Reason: fmt.Sprintf("content is %d bytes, limit is %d", len(content), g.maxWriteBytes),
		}
	}

	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return nil
}

// checkPath rejects resolved absolute paths under any blocked prefix
// or inside a credential directory.
func (g *Guardrails) checkPath(toolName, raw string) error {
	abs, err := filepath.Abs(raw)
	if err != nil {
		return &GuardrailError{Tool: toolName, Check: "path-blocklist", Reason: fmt.Sprintf("cannot resolve path %q", raw)}
	}
	abs = filepath.Clean(abs)

	for _, prefix := range g.blocked {
		if abs == prefix || hasPathPrefix(abs, prefix) {
			return &GuardrailError{
				Tool:   toolName,
				Check:  "path-blocklist",
				Reason: fmt.Sprintf("path %q is under blocked prefix %q", raw, prefix),
			}
		}
	}

	for _, dir := range credentialDirNames {
		for _, segment := range splitPath(abs) {
			if segment == dir {
				return &GuardrailError{
					Tool:   toolName,
					Check:  "path-blocklist",
					Reason: fmt.Sprintf("path %q touches credential directory %q", raw, dir),
				}
			}
		}
	}

	return nil
}

// NeedsConfirmation reports whether a tool is destructive. Surfaced on
// results for the caller's UI; execution proceeds regardless.
func (g *Guardrails) NeedsConfirmation(toolName string) bool {
	return destructiveTools[toolName]
}

// ResetTurn clears the session call counter. Called at the start of
// each orchestration turn.
func (g *Guardrails) ResetTurn() {
	g.mu.Lock()
	g.calls = 0
	g.mu.Unlock()
}

// CallsUsed returns how many calls passed guardrails this turn.
func (g *Guardrails) CallsUsed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func hasPathPrefix(path, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func splitPath(path string) []string {
	return strings.Split(filepath.ToSlash(path), "/")
}
