package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParserRegistry_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	content := "# Expenses\nKeep receipts for everything.\n\n# Travel\nBook in advance.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	registry := NewParserRegistry()
	sections, err := registry.ParseDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Title != "Expenses" || sections[1].Title != "Travel" {
		t.Errorf("unexpected titles: %q, %q", sections[0].Title, sections[1].Title)
	}
}

func TestParserRegistry_Xlsx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "budget.xlsx")

	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Item"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Cost"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B2", "=VLOOKUP(A2,Prices!A:B,2,FALSE)"); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	registry := NewParserRegistry()
	sections, err := registry.ParseDocument(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected 1 sheet section, got %d", len(sections))
	}
	if !strings.Contains(sections[0].Title, "Sheet1") {
		t.Errorf("expected sheet name in title, got %q", sections[0].Title)
	}
	if !strings.Contains(sections[0].Body, "A1: Item") {
		t.Errorf("expected cell references in body, got %q", sections[0].Body)
	}
	if !strings.Contains(sections[0].Body, "VLOOKUP") {
		t.Errorf("expected formula text preserved, got %q", sections[0].Body)
	}
}

func TestParserRegistry_UnknownExtension(t *testing.T) {
	registry := NewParserRegistry()
	_, err := registry.ParseDocument(context.Background(), "photo.png")
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestParserRegistry_SupportedExtensions(t *testing.T) {
	registry := NewParserRegistry()
	exts := registry.SupportedExtensions()

	want := map[string]bool{".pdf": false, ".docx": false, ".xlsx": false, ".md": false, ".txt": false}
	for _, ext := range exts {
		if _, ok := want[ext]; ok {
			want[ext] = true
		}
	}
	for ext, found := range want {
		if !found {
			t.Errorf("extension %s not supported", ext)
		}
	}
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
	}
	for _, tt := range tests {
		if got := columnLetter(tt.index); got != tt.want {
			t.Errorf("columnLetter(%d) = %s, want %s", tt.index, got, tt.want)
		}
	}
}
