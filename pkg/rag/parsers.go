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

package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ParserRegistry extracts document structure from files on disk.
// PDF pages, spreadsheet sheets and markdown headings each become a
// Section; plain text falls back to one section per document.
type ParserRegistry struct {
	parsers []documentParser
}

type documentParser interface {
	CanParse(filePath string) bool
	Parse(ctx context.Context, filePath string) ([]Section, error)
	Extensions() []string
}

// NewParserRegistry creates a registry with the built-in parsers.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		parsers: []documentParser{
			&pdfParser{},
			&docxParser{},
			&xlsxParser{},
			&markdownParser{},
		},
	}
}

// ParseDocument extracts sections from the file at filePath.
func (r *ParserRegistry) ParseDocument(ctx context.Context, filePath string) ([]Section, error) {
	for _, parser := range r.parsers {
		if parser.CanParse(filePath) {
			return parser.Parse(ctx, filePath)
		}
	}
	return nil, fmt.Errorf("no parser available for %s", filepath.Ext(filePath))
}

// SupportedExtensions returns all file extensions the registry handles.
func (r *ParserRegistry) SupportedExtensions() []string {
	var out []string
	for _, parser := range r.parsers {
		out = append(out, parser.Extensions()...)
	}
	return out
}

// pdfParser extracts one section per PDF page.
type pdfParser struct{}

func (p *pdfParser) CanParse(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".pdf")
}

func (p *pdfParser) Extensions() []string {
	return []string{".pdf"}
}

func (p *pdfParser) Parse(ctx context.Context, filePath string) ([]Section, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	var sections []Section
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		sections = append(sections, Section{
			Title: fmt.Sprintf("Page %d", pageNum),
			Body:  text,
		})
	}

	return sections, nil
}

// docxParser extracts the document body as blank-line separated
// sections.
type docxParser struct{}

func (p *docxParser) CanParse(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".docx")
}

func (p *docxParser) Extensions() []string {
	return []string{".docx"}
}

func (p *docxParser) Parse(ctx context.Context, filePath string) ([]Section, error) {
	doc, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	content := strings.TrimSpace(doc.Editable().GetContent())
	if content == "" {
		return nil, nil
	}

	return []Section{{
		Title: filepath.Base(filePath),
		Body:  content,
	}}, nil
}

// xlsxParser extracts one section per sheet, rendered as cell
// reference / value lines so exact lookups stay searchable.
type xlsxParser struct{}

func (p *xlsxParser) CanParse(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".xlsx")
}

func (p *xlsxParser) Extensions() []string {
	return []string{".xlsx"}
}

// maxCellsPerSheet bounds sheet output size.
const maxCellsPerSheet = 1000

func (p *xlsxParser) Parse(ctx context.Context, filePath string) ([]Section, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spreadsheet: %w", err)
	}
	defer f.Close()

	var sections []Section
	for _, sheetName := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return sections, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var body strings.Builder
		cellCount := 0
		for rowIndex, row := range rows {
			if cellCount >= maxCellsPerSheet {
				body.WriteString("... (truncated)\n")
				break
			}
			for colIndex, cell := range row {
				if cellCount >= maxCellsPerSheet {
					break
				}
				if text := strings.TrimSpace(cell); text != "" {
					cellRef := fmt.Sprintf("%s%d", columnLetter(colIndex), rowIndex+1)
					body.WriteString(fmt.Sprintf("%s: %s\n", cellRef, text))
					cellCount++
				}
			}
		}

		if body.Len() > 0 {
			sections = append(sections, Section{
				Title: fmt.Sprintf("Sheet: %s", sheetName),
				Body:  body.String(),
			})
		}
	}

	return sections, nil
}

// columnLetter converts a 0-based column index to an Excel column
// letter (A, B, ..., Z, AA, AB, ...).
func columnLetter(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// markdownParser splits on headings; it also handles plain text,
// which yields a single untitled section.
type markdownParser struct{}

func (p *markdownParser) CanParse(filePath string) bool {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".md", ".markdown", ".txt", ".text":
		return true
	}
	return false
}

func (p *markdownParser) Extensions() []string {
	return []string{".md", ".markdown", ".txt", ".text"}
}

func (p *markdownParser) Parse(ctx context.Context, filePath string) ([]Section, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return SplitMarkdownSections(string(data)), nil
}

// SplitMarkdownSections splits markdown text into heading-delimited
// sections. Text before the first heading becomes an untitled section.
func SplitMarkdownSections(text string) []Section {
	var sections []Section
	var title string
	var body strings.Builder

	flush := func() {
		b := strings.TrimSpace(body.String())
		if b != "" || title != "" {
			sections = append(sections, Section{Title: title, Body: b})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			heading := strings.TrimLeft(trimmed, "#")
			if heading == "" || strings.HasPrefix(heading, " ") {
				flush()
				title = strings.TrimSpace(heading)
				continue
			}
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}
