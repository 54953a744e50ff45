package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	write := NewWriteFileTool(dir)
	result, err := write.Execute(ctx, map[string]interface{}{
		"path":    "notes/plan.md",
		"content": "# Plan\n\nShip it.",
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !result.Success {
		t.Fatalf("write failed: %s", result.Error)
	}
	if overwrote, _ := result.Metadata["overwrote"].(bool); overwrote {
		t.Error("fresh write reported overwrote=true")
	}

	read := NewReadFileTool(dir)
	result, err = read.Execute(ctx, map[string]interface{}{"path": "notes/plan.md"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !result.Success {
		t.Fatalf("read failed: %s", result.Error)
	}
	if result.Content != "# Plan\n\nShip it." {
		t.Errorf("content = %q", result.Content)
	}
}

func TestWriteFile_OverwriteAndAppend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	write := NewWriteFileTool(dir)

	mustWrite := func(args map[string]interface{}) ToolResult {
		t.Helper()
		result, err := write.Execute(ctx, args)
		if err != nil || !result.Success {
			t.Fatalf("write failed: %v %s", err, result.Error)
		}
		return result
	}

	mustWrite(map[string]interface{}{"path": "log.txt", "content": "one\n"})
	result := mustWrite(map[string]interface{}{"path": "log.txt", "content": "two\n"})
	if overwrote, _ := result.Metadata["overwrote"].(bool); !overwrote {
		t.Error("second write did not report overwrote")
	}
	mustWrite(map[string]interface{}{"path": "log.txt", "content": "three\n", "append": true})

	data, err := os.ReadFile(filepath.Join(dir, "log.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "two\nthree\n" {
		t.Errorf("file content = %q", string(data))
	}
}

func TestResolveWorkPath_Rejections(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"traversal", "../outside.txt"},
		{"nested traversal", "a/../../outside.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolveWorkPath(dir, tt.path); err == nil {
				t.Errorf("resolveWorkPath(%q) accepted", tt.path)
			}
		})
	}
}

func TestListDirectory(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("aa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	list := NewListDirectoryTool(dir)
	result, err := list.Execute(ctx, map[string]interface{}{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !result.Success {
		t.Fatalf("list failed: %s", result.Error)
	}
	if !strings.Contains(result.Content, "a.txt (2 bytes)") {
		t.Errorf("missing file entry: %q", result.Content)
	}
	if !strings.Contains(result.Content, "sub/") {
		t.Errorf("missing directory entry: %q", result.Content)
	}
	if n, _ := result.Metadata["entries"].(int); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
}

func TestDeleteFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	path := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	del := NewDeleteFileTool(dir)
	result, err := del.Execute(ctx, map[string]interface{}{"path": "gone.txt"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !result.Success {
		t.Fatalf("delete failed: %s", result.Error)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}

	result, err = del.Execute(ctx, map[string]interface{}{"path": "gone.txt"})
	if err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if result.Success {
		t.Error("deleting a missing file reported success")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "old.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	move := NewMoveFileTool(dir)
	result, err := move.Execute(ctx, map[string]interface{}{
		"source":      "old.txt",
		"destination": "archive/new.txt",
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !result.Success {
		t.Fatalf("move failed: %s", result.Error)
	}

	data, err := os.ReadFile(filepath.Join(dir, "archive", "new.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("moved content = %q", string(data))
	}
	if _, err := os.Stat(filepath.Join(dir, "old.txt")); !os.IsNotExist(err) {
		t.Error("source still exists after move")
	}
}
