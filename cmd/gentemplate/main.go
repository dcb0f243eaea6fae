// Command gentemplate writes an empty Excel template for the bulk-register
// importer, with a header row and one example row.
package main

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/gomonitor/internal/importer"
)

const defaultOutput = "import-template.xlsx"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	output := defaultOutput
	if len(os.Args) > 1 {
		output = os.Args[1]
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(importer.SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	for i, header := range importer.Headers {
		cell, cellErr := excelize.CoordinatesToCellName(i+1, 1)
		if cellErr != nil {
			return fmt.Errorf("header cell name: %w", cellErr)
		}
		if setErr := f.SetCellValue(importer.SheetName, cell, header); setErr != nil {
			return fmt.Errorf("set header: %w", setErr)
		}
	}

	example := []any{42, "yahoo", "https://example.com/item/42", "y-42"}
	for i, value := range example {
		cell, cellErr := excelize.CoordinatesToCellName(i+1, 2)
		if cellErr != nil {
			return fmt.Errorf("example cell name: %w", cellErr)
		}
		if setErr := f.SetCellValue(importer.SheetName, cell, value); setErr != nil {
			return fmt.Errorf("set example: %w", setErr)
		}
	}

	if err := f.SaveAs(output); err != nil {
		return fmt.Errorf("save template: %w", err)
	}

	fmt.Printf("Template written to %s\n", output)
	return nil
}
