package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/rag"
	"github.com/jungtaeinn/open-persona/pkg/vector"
)

// stubEmbedder hashes nothing; every text gets the same unit vector,
// which is enough to drive the indexing paths under test.
type stubEmbedder struct{}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.577, 0.577, 0.577}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.577, 0.577, 0.577}
	}
	return out, nil
}

func (e *stubEmbedder) Dimension() int { return 3 }
func (e *stubEmbedder) Model() string  { return "stub" }
func (e *stubEmbedder) Close() error   { return nil }

func newTestManager(t *testing.T, personas []*config.PersonaConfig) (*Manager, *rag.Engine) {
	t.Helper()

	provider, err := vector.NewChromemProvider(vector.ChromemConfig{})
	if err != nil {
		t.Fatalf("failed to create vector provider: %v", err)
	}
	catalog, err := rag.NewChunkStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create chunk store: %v", err)
	}

	engine := rag.NewEngine(&stubEmbedder{}, provider, catalog, nil, rag.EngineConfig{})
	chunker := rag.NewSectionChunker(rag.ChunkerConfig{})
	return NewManager(engine, chunker, personas), engine
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestUpload_IndexesIntoLearnedIndex(t *testing.T) {
	persona := &config.PersonaConfig{ID: "excel-pro"}
	mgr, engine := newTestManager(t, []*config.PersonaConfig{persona})
	ctx := context.Background()

	path := writeDoc(t, t.TempDir(), "guide.md", "# Lookups\n\nUse VLOOKUP for exact matches.")

	count, err := mgr.Upload(ctx, "excel-pro", path, "formulas")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if count == 0 {
		t.Fatal("expected at least one chunk indexed")
	}

	stats, err := engine.Stats(ctx, "excel-pro")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Indices[rag.IndexLearned].Chunks != count {
		t.Errorf("learned chunks = %d, want %d", stats.Indices[rag.IndexLearned].Chunks, count)
	}
	if stats.Indices[rag.IndexStatic].Chunks != 0 {
		t.Error("upload must not touch the static index")
	}
}

func TestUpload_UnparseableFile(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	if _, err := mgr.Upload(context.Background(), "p1", "/does/not/exist.md", ""); err == nil {
		t.Error("missing file must fail the upload")
	}
}

func TestBootstrap_IndexesAndIsIdempotent(t *testing.T) {
	knowledgeDir := t.TempDir()
	writeDoc(t, knowledgeDir, "basics.md", "# Basics\n\nCells hold values and formulas.")
	writeDoc(t, knowledgeDir, filepath.Join("formulas", "lookup.md"), "# Lookup\n\nVLOOKUP scans the first column.")
	writeDoc(t, knowledgeDir, "notes.bin", "not a supported format")

	persona := &config.PersonaConfig{ID: "excel-pro", KnowledgeDir: knowledgeDir}
	mgr, engine := newTestManager(t, []*config.PersonaConfig{persona})
	ctx := context.Background()

	if err := mgr.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	stats, err := engine.Stats(ctx, "excel-pro")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	first := stats.Indices[rag.IndexStatic].Chunks
	if first == 0 {
		t.Fatal("bootstrap indexed nothing")
	}
	if got := len(stats.Indices[rag.IndexStatic].Sources); got != 2 {
		t.Errorf("sources = %d, want 2 (unsupported extension skipped)", got)
	}

	// Second run must be a no-op.
	if err := mgr.Bootstrap(ctx); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	stats, err = engine.Stats(ctx, "excel-pro")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Indices[rag.IndexStatic].Chunks != first {
		t.Errorf("chunks after rerun = %d, want %d", stats.Indices[rag.IndexStatic].Chunks, first)
	}
}

func TestBootstrap_SkipsPersonasWithoutKnowledgeDir(t *testing.T) {
	mgr, _ := newTestManager(t, []*config.PersonaConfig{{ID: "no-dir"}})

	if err := mgr.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
}

func TestReindex_ReplacesStaleChunks(t *testing.T) {
	knowledgeDir := t.TempDir()
	path := writeDoc(t, knowledgeDir, "doc.md", "# V1\n\nOriginal content.")

	persona := &config.PersonaConfig{ID: "p1", KnowledgeDir: knowledgeDir}
	mgr, engine := newTestManager(t, []*config.PersonaConfig{persona})
	ctx := context.Background()

	if err := mgr.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	before, err := engine.Stats(ctx, "p1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	writeDoc(t, knowledgeDir, "doc.md", "# V2\n\nRevised content.")
	if _, err := mgr.Reindex(ctx, persona, path); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	after, err := engine.Stats(ctx, "p1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(after.Indices[rag.IndexStatic].Sources) != len(before.Indices[rag.IndexStatic].Sources) {
		t.Errorf("sources changed across reindex: %d -> %d",
			len(before.Indices[rag.IndexStatic].Sources), len(after.Indices[rag.IndexStatic].Sources))
	}

	results, err := engine.Search(ctx, rag.SearchRequest{Query: "revised", Persona: "p1", TopK: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	found := false
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Content), "revised") {
			found = true
		}
	}
	if !found {
		t.Error("reindexed content not searchable")
	}
}

func TestCategoryFor(t *testing.T) {
	persona := &config.PersonaConfig{
		ID:           "p1",
		KnowledgeDir: "/data/knowledge",
		Categories:   []string{"general"},
	}

	tests := []struct {
		path string
		want string
	}{
		{"/data/knowledge/formulas/lookup.md", "formulas"},
		{"/data/knowledge/basics.md", "general"},
	}
	for _, tt := range tests {
		if got := categoryFor(persona, tt.path); got != tt.want {
			t.Errorf("categoryFor(%s) = %q, want %q", tt.path, got, tt.want)
		}
	}

	bare := &config.PersonaConfig{ID: "p2", KnowledgeDir: "/data/k"}
	if got := categoryFor(bare, "/data/k/doc.md"); got != "" {
		t.Errorf("no categories configured, got %q", got)
	}
}
