package sheet

import (
	"bytes"
	"testing"
)

func TestMatchPreset(t *testing.T) {
	presets := []ColumnPreset{
		{Pattern: "id_*", Kind: ColumnBigInt},
		{Pattern: "*", Kind: ColumnVarchar},
	}
	if kind, ok := matchPreset(presets, "id_customer"); !ok || kind != ColumnBigInt {
		t.Fatalf("expected id_* preset to match, got %v/%v", kind, ok)
	}
	if kind, ok := matchPreset(presets, "name"); !ok || kind != ColumnVarchar {
		t.Fatalf("expected wildcard preset to match, got %v/%v", kind, ok)
	}
	if _, ok := matchPreset(nil, "name"); ok {
		t.Fatalf("expected no match against an empty preset list")
	}
}

func TestFirstNonNil(t *testing.T) {
	a := intPtr(1)
	if got := firstNonNil(a, nil); got != a {
		t.Fatalf("expected first value when non-nil")
	}
	b := intPtr(2)
	if got := firstNonNil(nil, b); got != b {
		t.Fatalf("expected fallback value when first is nil")
	}
}

func TestAnalyzeSheetsInfersColumnTypesAndHeaderNames(t *testing.T) {
	data := buildXlsxZip(t, sampleXlsxParts())
	x, err := openXlsxReader("workbook.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("openXlsxReader: %v", err)
	}

	tables, err := AnalyzeSheets(x, true, Criteria{}, nil)
	if err != nil {
		t.Fatalf("AnalyzeSheets: %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}

	table := tables[0]
	if table.Name != "Sheet1" {
		t.Fatalf("table name = %q", table.Name)
	}
	if len(table.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(table.Columns))
	}
	if table.Columns[0].Name != "Name" || table.Columns[0].Kind != ColumnVarchar {
		t.Fatalf("unexpected first column: %+v", table.Columns[0])
	}
	if table.Columns[1].Name != "Age" || table.Columns[1].Kind != ColumnBigInt {
		t.Fatalf("unexpected second column: %+v", table.Columns[1])
	}
	if table.RowLowerBound == nil || *table.RowLowerBound != 1 {
		t.Fatalf("expected row lower bound past the header row, got %v", table.RowLowerBound)
	}
}

func TestAnalyzeSheetsAppliesColumnPreset(t *testing.T) {
	data := buildXlsxZip(t, sampleXlsxParts())
	x, err := openXlsxReader("workbook.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("openXlsxReader: %v", err)
	}

	presets := []ColumnPreset{{Pattern: "Age", Kind: ColumnVarchar}}
	tables, err := AnalyzeSheets(x, true, Criteria{}, presets)
	if err != nil {
		t.Fatalf("AnalyzeSheets: %v", err)
	}
	if tables[0].Columns[1].Kind != ColumnVarchar {
		t.Fatalf("expected preset to override inferred type, got %v", tables[0].Columns[1].Kind)
	}
}
