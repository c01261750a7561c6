package sheet

import "testing"

func TestParseColumnTypeAliases(t *testing.T) {
	cases := map[string]ColumnType{
		"bool":    ColumnBoolean,
		"INTEGER": ColumnBigInt,
		"decimal": ColumnDouble,
		"text":    ColumnVarchar,
		"TIMESTAMP": ColumnTimestamp,
		"date":    ColumnDate,
		"time":    ColumnTime,
	}
	for name, want := range cases {
		got, err := ParseColumnType(name)
		if err != nil {
			t.Fatalf("ParseColumnType(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseColumnType(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseColumnTypeInvalid(t *testing.T) {
	if _, err := ParseColumnType("nonsense"); err == nil {
		t.Fatal("expected an error for an unrecognized type name")
	}
}

func TestDetectColumnTypeAgreement(t *testing.T) {
	if got := detectColumnType([]ColumnType{ColumnBigInt, ColumnBigInt}); got != ColumnBigInt {
		t.Fatalf("expected BigInt, got %v", got)
	}
	if got := detectColumnType([]ColumnType{ColumnBigInt, ColumnDouble}); got != ColumnDouble {
		t.Fatalf("expected widening to Double, got %v", got)
	}
	if got := detectColumnType([]ColumnType{ColumnDate, ColumnTime}); got != ColumnTimestamp {
		t.Fatalf("expected Date+Time to widen to Timestamp, got %v", got)
	}
	if got := detectColumnType([]ColumnType{ColumnBoolean, ColumnVarchar}); got != ColumnVarchar {
		t.Fatalf("expected disagreement to fall back to Varchar, got %v", got)
	}
	if got := detectColumnType(nil); got != ColumnVarchar {
		t.Fatalf("expected no candidates to fall back to Varchar, got %v", got)
	}
}

func TestIsIntegerText(t *testing.T) {
	if !isIntegerText("42") {
		t.Fatal("expected 42 to be integer text")
	}
	if !isIntegerText("42.00") {
		t.Fatal("expected 42.00 to be integer text (all-zero tail)")
	}
	if isIntegerText("42.5") {
		t.Fatal("expected 42.5 to not be integer text")
	}
}
