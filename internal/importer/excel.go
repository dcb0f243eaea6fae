// Package importer parses Excel spreadsheets into registration inputs for
// bulk registration.
package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/gomonitor/internal/manager"
	"github.com/jonesrussell/gomonitor/internal/models"
)

// SheetName is the worksheet read by the importer and written by the
// template generator.
const SheetName = "Records"

// Column indices for the import spreadsheet (0-based).
const (
	colExternalID      = 0 // Column A
	colPlatform        = 1 // Column B
	colSourceURL       = 2 // Column C
	colSourceProductID = 3 // Column D

	minRequiredColumns = 3
)

// Headers is the expected header row of the import template.
var Headers = []string{"external_id", "platform", "source_url", "source_product_id"}

// RowError reports why one spreadsheet row was rejected.
type RowError struct {
	Row   int    `json:"row"` // Excel row number, 1-based
	Error string `json:"error"`
}

// ParseFile reads the spreadsheet at path and returns registration inputs
// for valid rows alongside per-row errors for invalid ones. The header row
// is skipped.
func ParseFile(path string) ([]manager.RegisterInput, []RowError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", SheetName, err)
	}

	var inputs []manager.RegisterInput
	var rowErrors []RowError

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rowNum := i + 1

		if isEmptyRow(row) {
			continue
		}

		input, parseErr := parseRow(row)
		if parseErr != "" {
			rowErrors = append(rowErrors, RowError{Row: rowNum, Error: parseErr})
			continue
		}
		inputs = append(inputs, input)
	}

	return inputs, rowErrors, nil
}

func parseRow(row []string) (manager.RegisterInput, string) {
	var input manager.RegisterInput

	if len(row) < minRequiredColumns {
		return input, "row has too few columns"
	}

	externalID, err := strconv.ParseInt(strings.TrimSpace(row[colExternalID]), 10, 64)
	if err != nil || externalID < 1 {
		return input, "external_id must be a positive integer"
	}

	platform := models.Platform(strings.TrimSpace(row[colPlatform]))
	if !platform.Valid() {
		return input, fmt.Sprintf("platform must be one of %v", models.Platforms)
	}

	sourceURL := strings.TrimSpace(row[colSourceURL])
	if _, urlErr := models.ValidateSourceURL(sourceURL); urlErr != nil {
		return input, "source_url must be an absolute http(s) URL"
	}

	input.ExternalID = externalID
	input.Platform = platform
	input.SourceURL = sourceURL

	if len(row) > colSourceProductID {
		if spid := strings.TrimSpace(row[colSourceProductID]); spid != "" {
			input.SourceProductID = &spid
		}
	}

	return input, ""
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
