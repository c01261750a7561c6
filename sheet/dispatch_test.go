package sheet

import (
	"bytes"
	"os"
	"testing"
)

func TestOpenSpreadsheetUnsupportedExtension(t *testing.T) {
	_, err := OpenSpreadsheet("report.txt")
	if _, ok := err.(*UnsupportedFormatError); !ok {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestOpenSpreadsheetStripsQuerySuffix(t *testing.T) {
	_, err := OpenSpreadsheet("report.txt?download=1")
	if _, ok := err.(*UnsupportedFormatError); !ok {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestOpenSpreadsheetMissingFile(t *testing.T) {
	_, err := OpenSpreadsheet("does-not-exist.xlsx")
	if !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestOpenSpreadsheetReaderDispatchesByExtension(t *testing.T) {
	data := buildXlsxZip(t, sampleXlsxParts())
	s, err := OpenSpreadsheetReader("workbook.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenSpreadsheetReader: %v", err)
	}
	if s.Name() != "workbook.xlsx" {
		t.Fatalf("Name() = %q", s.Name())
	}

	data = buildXlsxZip(t, sampleOdsParts())
	s, err = OpenSpreadsheetReader("workbook.ods", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenSpreadsheetReader (ods): %v", err)
	}
	if s.Name() != "workbook.ods" {
		t.Fatalf("Name() = %q", s.Name())
	}
}

func TestOpenSpreadsheetsAssociatesSheetPatterns(t *testing.T) {
	dir := t.TempDir()
	data := buildXlsxZip(t, sampleXlsxParts())
	path := dir + "/workbook.xlsx"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	opened, err := OpenSpreadsheets([]string{path}, []FileSheetPatterns{
		{FilePattern: "*.xlsx", SheetPattern: "Sheet*"},
		{FilePattern: "*.csv", SheetPattern: "Other*"},
	})
	if err != nil {
		t.Fatalf("OpenSpreadsheets: %v", err)
	}
	if len(opened) != 1 {
		t.Fatalf("expected 1 opened file, got %d", len(opened))
	}
	if len(opened[0].SheetNamePatterns) != 1 || opened[0].SheetNamePatterns[0] != "Sheet*" {
		t.Fatalf("unexpected sheet patterns: %v", opened[0].SheetNamePatterns)
	}
}
