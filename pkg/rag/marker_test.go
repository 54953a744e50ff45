package rag

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureEmbeddingMarker_FirstRunWritesMarker(t *testing.T) {
	dir := t.TempDir()

	wiped, err := EnsureEmbeddingMarker(dir, "text-embedding-3-small", 1536)
	if err != nil {
		t.Fatalf("EnsureEmbeddingMarker failed: %v", err)
	}
	if wiped {
		t.Error("first run must not wipe")
	}

	data, err := os.ReadFile(filepath.Join(dir, "embedding.marker"))
	if err != nil {
		t.Fatalf("marker not written: %v", err)
	}
	if string(data) != "text-embedding-3-small:1536\n" {
		t.Errorf("unexpected marker content: %q", string(data))
	}
}

func TestEnsureEmbeddingMarker_UnchangedConfigKeepsData(t *testing.T) {
	dir := t.TempDir()

	vectorsDir := filepath.Join(dir, "vectors")
	if err := os.MkdirAll(vectorsDir, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := EnsureEmbeddingMarker(dir, "model-a", 768); err != nil {
		t.Fatal(err)
	}
	wiped, err := EnsureEmbeddingMarker(dir, "model-a", 768)
	if err != nil {
		t.Fatal(err)
	}
	if wiped {
		t.Error("matching marker must not wipe")
	}
	if _, err := os.Stat(vectorsDir); err != nil {
		t.Error("vectors directory must survive a matching marker")
	}
}

func TestEnsureEmbeddingMarker_ModelChangeWipesIndices(t *testing.T) {
	dir := t.TempDir()

	if _, err := EnsureEmbeddingMarker(dir, "model-a", 768); err != nil {
		t.Fatal(err)
	}

	vectorsFile := filepath.Join(dir, "vectors", "vectors.gob")
	chunksFile := filepath.Join(dir, "chunks", "p1-static.json")
	for _, f := range []string{vectorsFile, chunksFile} {
		if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(f, []byte("stale"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	wiped, err := EnsureEmbeddingMarker(dir, "model-b", 1536)
	if err != nil {
		t.Fatalf("EnsureEmbeddingMarker failed: %v", err)
	}
	if !wiped {
		t.Fatal("model change must wipe indices")
	}

	for _, f := range []string{vectorsFile, chunksFile} {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Errorf("stale index file survived wipe: %s", f)
		}
	}

	data, _ := os.ReadFile(filepath.Join(dir, "embedding.marker"))
	if string(data) != "model-b:1536\n" {
		t.Errorf("marker not rewritten: %q", string(data))
	}
}

func TestEnsureEmbeddingMarker_DimensionChangeWipes(t *testing.T) {
	dir := t.TempDir()

	if _, err := EnsureEmbeddingMarker(dir, "model-a", 768); err != nil {
		t.Fatal(err)
	}
	wiped, err := EnsureEmbeddingMarker(dir, "model-a", 1536)
	if err != nil {
		t.Fatal(err)
	}
	if !wiped {
		t.Error("dimension change must wipe indices")
	}
}
