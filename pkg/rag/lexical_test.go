package rag

import (
	"testing"
)

func storedChunk(id, content string) StoredChunk {
	return StoredChunk{
		ID:       id,
		Content:  content,
		Metadata: map[string]string{"source_uri": id + ".md"},
	}
}

func TestLexicalSearch_ExactTermRanksFirst(t *testing.T) {
	chunks := []StoredChunk{
		storedChunk("a", "The VLOOKUP function searches the first column of a range"),
		storedChunk("b", "Charts visualize numeric data in a worksheet"),
		storedChunk("c", "Pivot tables summarize large data sets"),
	}

	results := LexicalSearch("how do I use VLOOKUP", chunks, 3)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].ID != "a" {
		t.Errorf("expected exact-term chunk first, got %s", results[0].ID)
	}
}

func TestLexicalSearch_NoMatchReturnsNothing(t *testing.T) {
	chunks := []StoredChunk{
		storedChunk("a", "completely unrelated content"),
	}

	results := LexicalSearch("quarterly budget report", chunks, 5)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestLexicalSearch_TopKBound(t *testing.T) {
	var chunks []StoredChunk
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		chunks = append(chunks, storedChunk(id, "shared keyword appears here"))
	}

	results := LexicalSearch("keyword", chunks, 2)
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestLexicalSearch_CJKQuery(t *testing.T) {
	chunks := []StoredChunk{
		storedChunk("kr", "수식 입력은 등호로 시작합니다"),
		storedChunk("en", "formulas start with an equals sign"),
	}

	results := LexicalSearch("수식 입력 방법", chunks, 2)
	if len(results) == 0 {
		t.Fatal("expected CJK bigram match")
	}
	if results[0].ID != "kr" {
		t.Errorf("expected Korean chunk first, got %s", results[0].ID)
	}
}

func TestLexicalSearch_DeterministicTieBreak(t *testing.T) {
	chunks := []StoredChunk{
		storedChunk("z", "identical text body"),
		storedChunk("a", "identical text body"),
	}

	for i := 0; i < 5; i++ {
		results := LexicalSearch("identical text", chunks, 2)
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].ID != "a" {
			t.Fatalf("expected ID tie-break, got %s first", results[0].ID)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "ascii words",
			text: "Hello, World! 42",
			want: []string{"hello", "world", "42"},
		},
		{
			name: "cjk bigrams",
			text: "안녕하세요",
			want: []string{"안녕", "녕하", "하세", "세요"},
		},
		{
			name: "single cjk rune",
			text: "한",
			want: []string{"한"},
		},
		{
			name: "mixed scripts",
			text: "excel 함수",
			want: []string{"excel", "함수"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
