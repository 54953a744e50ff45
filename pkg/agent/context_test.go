package agent

import (
	"strings"
	"testing"

	"github.com/jungtaeinn/open-persona/pkg/config"
	"github.com/jungtaeinn/open-persona/pkg/llms"
	"github.com/jungtaeinn/open-persona/pkg/rag"
)

func testContextBuilder() *ContextBuilder {
	// No token counter; trimming is by turn count alone.
	return &ContextBuilder{}
}

func TestBuild_SystemThenHistoryThenUser(t *testing.T) {
	builder := testContextBuilder()
	persona := &config.PersonaConfig{ID: "p1", Instructions: "You are a spreadsheet expert."}
	history := []llms.Message{
		llms.UserMessage("earlier question"),
		llms.AssistantMessage("earlier answer", nil),
	}

	messages := builder.Build(persona, nil, history, "follow-up", nil)
	if len(messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(messages))
	}
	if messages[0].Role != llms.RoleSystem {
		t.Errorf("first role = %q, want system", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "spreadsheet expert") {
		t.Error("system prompt missing persona instructions")
	}
	if messages[1].Content != "earlier question" || messages[2].Content != "earlier answer" {
		t.Error("history not preserved in order")
	}
	if messages[3].Role != llms.RoleUser || messages[3].Content != "follow-up" {
		t.Errorf("last message = %+v, want user follow-up", messages[3])
	}
}

func TestBuild_RetrievedContextSection(t *testing.T) {
	builder := testContextBuilder()
	persona := &config.PersonaConfig{ID: "p1", Instructions: "Base instructions."}
	retrieved := []rag.SearchResult{
		{Content: "VLOOKUP searches the first column.", Metadata: map[string]interface{}{"source_uri": "docs/vlookup.md"}},
		{Content: "INDEX/MATCH is more flexible.", Metadata: map[string]interface{}{}},
	}

	messages := builder.Build(persona, retrieved, nil, "which should I use?", nil)
	system := messages[0].Content

	if !strings.Contains(system, "## Retrieved context") {
		t.Error("missing retrieved context heading")
	}
	if !strings.Contains(system, "[1] (docs/vlookup.md)") {
		t.Errorf("missing numbered source line, got:\n%s", system)
	}
	if !strings.Contains(system, "[2]\nINDEX/MATCH") {
		t.Error("entry without source_uri should still be numbered")
	}
	if !strings.Contains(system, "VLOOKUP searches the first column.") {
		t.Error("missing retrieved content")
	}
}

func TestBuild_RetrievedContextTruncated(t *testing.T) {
	builder := testContextBuilder()
	retrieved := []rag.SearchResult{
		{Content: strings.Repeat("x", maxContextChars*2), Metadata: map[string]interface{}{}},
	}

	messages := builder.Build(nil, retrieved, nil, "q", nil)
	system := messages[0].Content

	if len(system) > maxContextChars+512 {
		t.Errorf("system prompt length %d, retrieved section not truncated", len(system))
	}
}

func TestBuild_NoRetrievalNoSection(t *testing.T) {
	builder := testContextBuilder()
	persona := &config.PersonaConfig{ID: "p1", Instructions: "Base."}

	messages := builder.Build(persona, nil, nil, "hello", nil)
	if strings.Contains(messages[0].Content, "Retrieved context") {
		t.Error("empty retrieval must not add a context section")
	}
}

func TestTrimHistory_TurnCap(t *testing.T) {
	builder := testContextBuilder()

	var history []llms.Message
	for i := 0; i < maxHistoryTurns*2+10; i++ {
		history = append(history, llms.UserMessage("m"))
	}

	trimmed := builder.trimHistory(history)
	if len(trimmed) != maxHistoryTurns*2 {
		t.Errorf("got %d messages, want %d", len(trimmed), maxHistoryTurns*2)
	}
}

func TestBuildUserMessage_ImageParts(t *testing.T) {
	attachments := []Attachment{
		{Name: "chart.png", MimeType: "image/png", Data: "aGVsbG8=", Encoding: "base64"},
		{Name: "remote.jpg", MimeType: "image/jpeg", Data: "https://example.com/a.jpg", Encoding: "url"},
		{Name: "report.pdf", MimeType: "application/pdf", Data: "ignored"},
	}

	msg := buildUserMessage("what do you see?", attachments)
	if msg.Role != llms.RoleUser {
		t.Errorf("role = %q, want user", msg.Role)
	}
	if len(msg.Parts) != 3 {
		t.Fatalf("got %d parts, want 3 (text + two images, pdf excluded)", len(msg.Parts))
	}
	if msg.Parts[0].Type != llms.ContentPartTypeText || msg.Parts[0].Text != "what do you see?" {
		t.Errorf("first part = %+v, want text part", msg.Parts[0])
	}
	if msg.Parts[1].Type != llms.ContentPartTypeImageBase64 || msg.Parts[1].MediaType != "image/png" {
		t.Errorf("second part = %+v, want base64 png", msg.Parts[1])
	}
	if msg.Parts[2].Type != llms.ContentPartTypeImageURL || msg.Parts[2].URL != "https://example.com/a.jpg" {
		t.Errorf("third part = %+v, want image url", msg.Parts[2])
	}
}

func TestBuildUserMessage_TextOnly(t *testing.T) {
	msg := buildUserMessage("plain", nil)
	if msg.Content != "plain" || len(msg.Parts) != 0 {
		t.Errorf("got %+v, want plain content message", msg)
	}
}
