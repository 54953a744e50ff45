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
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const defaultMaxRows = 100

// ReadSpreadsheetTool reads rows from an xlsx workbook.
type ReadSpreadsheetTool struct {
	workDir string
}

func NewReadSpreadsheetTool(workDir string) *ReadSpreadsheetTool {
	return &ReadSpreadsheetTool{workDir: workDir}
}

func (t *ReadSpreadsheetTool) GetName() string { return "read_spreadsheet" }

func (t *ReadSpreadsheetTool) GetDescription() string {
	return "Read rows from an Excel (.xlsx) workbook in the working directory"
}

func (t *ReadSpreadsheetTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Workbook path relative to the working directory",
				Required:    true,
			},
			{
				Name:        "sheet",
				Type:        "string",
				Description: "Sheet name (default: first sheet)",
				Required:    false,
			},
			{
				Name:        "max_rows",
				Type:        "number",
				Description: "Maximum rows to return (default: 100)",
				Required:    false,
				Default:     defaultMaxRows,
			},
		},
	}
}

func (t *ReadSpreadsheetTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, err := requireString(args, "path")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	full, err := resolveWorkPath(t.workDir, path)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	maxRows := defaultMaxRows
	if v, ok := args["max_rows"].(float64); ok && v > 0 {
		maxRows = int(v)
	}

	f, err := excelize.OpenFile(full)
	if err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to open workbook: %v", err), start), nil
	}
	defer func() { _ = f.Close() }()

	sheet, _ := args["sheet"].(string)
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to read sheet %s: %v", sheet, err), start), nil
	}

	truncated := false
	if len(rows) > maxRows {
		rows = rows[:maxRows]
		truncated = true
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, "\t"))
		sb.WriteString("\n")
	}
	if truncated {
		sb.WriteString("... (truncated)\n")
	}

	return successResult(t.GetName(), sb.String(), start, map[string]interface{}{
		"path":      path,
		"sheet":     sheet,
		"rows":      len(rows),
		"truncated": truncated,
	}), nil
}

// WriteSpreadsheetTool sets cell values in an xlsx workbook, creating
// the workbook and sheet when missing.
type WriteSpreadsheetTool struct {
	workDir string
}

func NewWriteSpreadsheetTool(workDir string) *WriteSpreadsheetTool {
	return &WriteSpreadsheetTool{workDir: workDir}
}

func (t *WriteSpreadsheetTool) GetName() string { return "write_spreadsheet" }

func (t *WriteSpreadsheetTool) GetDescription() string {
	return "Set cell values in an Excel (.xlsx) workbook in the working directory"
}

func (t *WriteSpreadsheetTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "Workbook path relative to the working directory",
				Required:    true,
			},
			{
				Name:        "sheet",
				Type:        "string",
				Description: "Sheet name (default: Sheet1)",
				Required:    false,
				Default:     "Sheet1",
			},
			{
				Name:        "cells",
				Type:        "object",
				Description: "Map of cell references to values, e.g. {\"A1\": \"total\", \"B1\": 42}",
				Required:    true,
			},
		},
	}
}

func (t *WriteSpreadsheetTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	path, err := requireString(args, "path")
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	cells, ok := args["cells"].(map[string]interface{})
	if !ok || len(cells) == 0 {
		return failureResult(t.GetName(), "cells parameter is required", start), nil
	}

	full, err := resolveWorkPath(t.workDir, path)
	if err != nil {
		return failureResult(t.GetName(), err.Error(), start), nil
	}

	sheet, _ := args["sheet"].(string)
	if sheet == "" {
		sheet = "Sheet1"
	}

	var f *excelize.File
	if _, statErr := os.Stat(full); statErr == nil {
		f, err = excelize.OpenFile(full)
		if err != nil {
			return failureResult(t.GetName(), fmt.Sprintf("failed to open workbook: %v", err), start), nil
		}
	} else {
		f = excelize.NewFile()
	}
	defer func() { _ = f.Close() }()

	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return failureResult(t.GetName(), fmt.Sprintf("failed to create sheet %s: %v", sheet, err), start), nil
		}
	}

	for ref, value := range cells {
		if err := f.SetCellValue(sheet, ref, value); err != nil {
			return failureResult(t.GetName(),
				fmt.Sprintf("failed to set cell %s: %v", ref, err), start), nil
		}
	}

	if err := f.SaveAs(full); err != nil {
		return failureResult(t.GetName(), fmt.Sprintf("failed to save workbook: %v", err), start), nil
	}

	return successResult(t.GetName(),
		fmt.Sprintf("wrote %d cells to %s!%s", len(cells), path, sheet), start,
		map[string]interface{}{
			"path":  path,
			"sheet": sheet,
			"cells": len(cells),
		}), nil
}
