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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxReadFileSize = 10 << 20

// resolveWorkPath joins a relative path under workDir and rejects
// anything that would escape it.
func resolveWorkPath(workDir, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", path)
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("path traversal is not allowed: %s", path)
	}

	absWork, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("cannot resolve working directory: %w", err)
	}
	full := filepath.Clean(filepath.Join(absWork, path))
	if !hasPathPrefix(full, absWork) {
		return "", fmt.Errorf("path escapes working directory: %s", path)
	}
	return full, nil
}

// ReadFileTool reads a file relative to the working directory.
type ReadFileTool struct {
	workDir string
}

func NewReadFileTool(workDir string) *ReadFileTool {
	return &ReadFileTool{workDir: workDir}
}

func (t *ReadFileTool) GetName() string { return "read_file" }

func (t *ReadFileTool) GetDescription() string {
	return "Read the contents of a file in the working directory"
}

func (t *ReadFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "File path relative to the working directory",
				Required:    true,
			},
		},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, err := requireString(args, "path")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	full, err := resolveWorkPath(t.workDir, path)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	info, err := os.Stat(full)
	if err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to stat file: %v", err), start), nil
	}
	if info.IsDir() {
		return failureResult(t.GetName(), fmt.Sprintf("%s is a directory", path), start), nil
	}
	if info.Size() > maxReadFileSize {
		return failureResult(t.GetName(),
			fmt.Sprintf("file too large: %d bytes (max %d)", info.Size(), maxReadFileSize), start), nil
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to read file: %v", err), start), nil
	}

	return successResult(t.GetName(), string(content), start, map[string]interface{}{
		"path": path,
		"size": info.Size(),
	}), nil
}

// WriteFileTool writes a file relative to the working directory,
// creating parent directories as needed.
type WriteFileTool struct {
	workDir string
}

func NewWriteFileTool(workDir string) *WriteFileTool {
	return &WriteFileTool{workDir: workDir}
}

func (t *WriteFileTool) GetName() string { return "write_file" }

func (t *WriteFileTool) GetDescription() string {
	return "Write content to a file in the working directory"
}

func (t *WriteFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "File path relative to the working directory",
				Required:    true,
			},
			{
				Name:        "content",
				Type:        "string",
				Description: "Content to write",
				Required:    true,
			},
			{
				Name:        "append",
				Type:        "boolean",
				Description: "Append instead of overwrite (default: false)",
				Required:    false,
				Default:     false,
			},
		},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, err := requireString(args, "path")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}
	content, ok := args["content"].(string)
	if !ok {
		return failureResult(t.GetName(), "content parameter is required", start), nil
	}
	appendMode, _ := args["append"].(bool)

	full, err := resolveWorkPath(t.workDir, path)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to create directories: %v", err), start), nil
	}

	_, statErr := os.Stat(full)
	overwrote := statErr == nil && !appendMode

	if appendMode {
		f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return failureResult(t.GetName(), fmt.Sprintf("failed to open file: %v", err), start), nil
		}
		_, err = f.WriteString(content)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return failureResult(t.GetName(), fmt.Sprintf("failed to append: %v", err), start), nil
		}
	} else if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to write file: %v", err), start), nil
	}

	return successResult(t.GetName(),
		fmt.Sprintf("wrote %d bytes to %s", len(content), path), start,
		map[string]interface{}{
			"path":      path,
			"bytes":     len(content),
			"appended":  appendMode,
			"overwrote": overwrote,
		}), nil
}

// ListDirectoryTool lists a directory relative to the working
// directory.
type ListDirectoryTool struct {
	workDir string
}

func NewListDirectoryTool(workDir string) *ListDirectoryTool {
	return &ListDirectoryTool{workDir: workDir}
}

func (t *ListDirectoryTool) GetName() string { return "list_directory" }

func (t *ListDirectoryTool) GetDescription() string {
	return "List the entries of a directory in the working directory"
}

func (t *ListDirectoryTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Directory path relative to the working directory (default: .)",
				Required:    false,
				Default:     ".",
			},
		},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	full, err := resolveWorkPath(t.workDir, path)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to read directory: %v", err), start), nil
	}

	names := make([]string, 0, len(entries))
	var lines []string
	for _, entry := range entries {
		name := entry.Name()
		names = append(names, name)
		if entry.IsDir() {
			lines = append(lines, name+"/")
			continue
		}
		info, err := entry.Info()
		if err != nil {
			lines = append(lines, name)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s (%d bytes)", name, info.Size()))
	}
	sort.Strings(lines)

	return successResult(t.GetName(), strings.Join(lines, "\n"), start, map[string]interface{}{
		"path":    path,
		"entries": len(names),
	}), nil
}

// DeleteFileTool removes a file or an empty directory.
type DeleteFileTool struct {
	workDir string
}

func NewDeleteFileTool(workDir string) *DeleteFileTool {
	return &DeleteFileTool{workDir: workDir}
}

func (t *DeleteFileTool) GetName() string { return "delete_file" }

func (t *DeleteFileTool) GetDescription() string {
	return "Delete a file or empty directory in the working directory"
}

func (t *DeleteFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Path relative to the working directory",
				Required:    true,
			},
		},
	}
}

func (t *DeleteFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, err := requireString(args, "path")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	full, err := resolveWorkPath(t.workDir, path)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	if _, err := os.Stat(full); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to stat path: %v", err), start), nil
	}

	if err := os.Remove(full); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to delete: %v", err), start), nil
	}

	return successResult(t.GetName(), fmt.Sprintf("deleted %s", path), start,
		map[string]interface{}{"path": path}), nil
}

// MoveFileTool renames a file within the working directory.
type MoveFileTool struct {
	workDir string
}

func NewMoveFileTool(workDir string) *MoveFileTool {
	return &MoveFileTool{workDir: workDir}
}

func (t *MoveFileTool) GetName() string { return "move_file" }

func (t *MoveFileTool) GetDescription() string {
	return "Move or rename a file within the working directory"
}

func (t *MoveFileTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "source",
				Type:        "string",
				Description: "Source path relative to the working directory",
				Required:    true,
			},
			{
				Name:        "destination",
				Type:        "string",
				Description: "Destination path relative to the working directory",
				Required:    true,
			},
		},
	}
}

func (t *MoveFileTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	source, err := requireString(args, "source")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}
	destination, err := requireString(args, "destination")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	fullSrc, err := resolveWorkPath(t.workDir, source)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}
	fullDst, err := resolveWorkPath(t.workDir, destination)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	if err := os.MkdirAll(filepath.Dir(fullDst), 0o755); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to create directories: %v", err), start), nil
	}

	if err := os.Rename(fullSrc, fullDst); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to move: %v", err), start), nil
	}

	return successResult(t.GetName(),
		fmt.Sprintf("moved %s to %s", source, destination), start,
		map[string]interface{}{
			"source":      source,
			"destination": destination,
		}), nil
}
