package sheet

import (
	"bytes"
	"testing"
	"unicode/utf16"
)

func TestOpenXlsbReaderRejectsNonZipData(t *testing.T) {
	_, err := openXlsbReader("workbook.xlsb", bytes.NewReader([]byte("not a zip file")))
	if err == nil {
		t.Fatal("expected an error for non-zip data")
	}
}

// --- minimal BIFF12 record builders ---------------------------------------

// biff12Varint encodes v as the 7-bit continuation varint biff12Reader.
// read7BitContinuationInteger decodes, used for both a record's tag and its
// payload length.
func biff12Varint(v int) []byte {
	var out []byte
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		out = append(out, b)
		break
	}
	return out
}

func biff12Record(tag uint16, body []byte) []byte {
	out := append([]byte{}, biff12Varint(int(tag))...)
	out = append(out, biff12Varint(len(body))...)
	return append(out, body...)
}

// biff12Str builds the length-prefixed UTF-16LE string field
// getStrAndBound/getStr expect: a 4-byte character count followed by that
// many UTF-16 code units.
func biff12Str(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := biffU32(uint32(len(units)))
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

// buildXlsbWorkbookParts assembles the minimal set of BIFF12/zip parts an
// .xlsb container needs to exercise BrtCellRk, a plain string cell, and a
// shared-string cell, plus the styles and shared-strings parts those cells
// resolve against.
func buildXlsbWorkbookParts() map[string]string {
	workbookBin := concatBytes(
		biff12Record(brtBundleSh, concatBytes(
			make([]byte, 8), // hidden state + sheetId, unused by loadWorkbookXlsb
			biff12Str("rId1"),
			biff12Str("Sheet1"),
		)),
		biff12Record(brtEndBundleShs, nil),
	)

	stylesBin := concatBytes(
		biff12Record(brtBeginCellXfs, biffU32(1)),
		biff12Record(brtXf, concatBytes(biffU16(0), biffU16(0))), // numFmtId 0 = General
	)

	sheetBin := concatBytes(
		biff12Record(brtBeginSheetData, nil),
		biff12Record(brtRowHdr, biffU32(0)),
		biff12Record(brtCellRk, concatBytes(biffU32(0), make([]byte, 4), biffRK(10))),
		biff12Record(brtCellRk, concatBytes(biffU32(1), make([]byte, 4), biffRK(20))),
		biff12Record(brtRowHdr, biffU32(1)),
		biff12Record(brtCellRk, concatBytes(biffU32(0), make([]byte, 4), biffRK(30))),
		biff12Record(brtRowHdr, biffU32(2)),
		biff12Record(brtCellSt, concatBytes(biffU32(0), make([]byte, 4), biff12Str("Total"))),
		biff12Record(brtRowHdr, biffU32(3)),
		biff12Record(brtCellIsst, concatBytes(biffU32(0), make([]byte, 4), biffU32(0))),
		biff12Record(brtEndSheetData, nil),
	)

	sharedStringsBin := concatBytes(
		biff12Record(brtBeginSst, concatBytes(biffU32(1), biffU32(1))),
		biff12Record(brtSstItem, concatBytes([]byte{0}, biff12Str("Hello"))),
	)

	return map[string]string{
		"xl/workbook.bin":             string(workbookBin),
		"xl/_rels/workbook.bin.rels":  `<?xml version="1.0"?><Relationships><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.bin"/></Relationships>`,
		"xl/worksheets/sheet1.bin":    string(sheetBin),
		"xl/styles.bin":               string(stylesBin),
		"xl/sharedStrings.bin":        string(sharedStringsBin),
	}
}

func TestOpenXlsbReaderReadsBiff12Records(t *testing.T) {
	data := buildXlsxZip(t, buildXlsbWorkbookParts())
	x, err := openXlsbReader("workbook.xlsb", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("openXlsbReader: %v", err)
	}

	names, err := x.SheetNames()
	if err != nil || len(names) != 1 || names[0] != "Sheet1" {
		t.Fatalf("SheetNames() = %v, %v", names, err)
	}

	sheets, err := x.ReadSheets(Criteria{})
	if err != nil {
		t.Fatalf("ReadSheets: %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("expected 1 sheet, got %d", len(sheets))
	}
	sh := sheets[0]
	if sh.Name != "Sheet1" {
		t.Fatalf("sheet name = %q", sh.Name)
	}

	want := []Cell{
		{Row: 0, Col: 0, Kind: Number, Value: "10"},
		{Row: 0, Col: 1, Kind: Number, Value: "20"},
		{Row: 1, Col: 0, Kind: Number, Value: "30"},
		{Row: 2, Col: 0, Kind: InlineString, Value: "Total"},
		{Row: 3, Col: 0, Kind: SharedString, Value: "0"},
	}
	if len(sh.Cells) != len(want) {
		t.Fatalf("expected %d cells, got %d: %+v", len(want), len(sh.Cells), sh.Cells)
	}
	for i, w := range want {
		if sh.Cells[i] != w {
			t.Fatalf("cell %d = %+v, want %+v", i, sh.Cells[i], w)
		}
	}

	strings, mappings, err := x.LoadSharedStrings(map[int]struct{}{0: {}})
	if err != nil {
		t.Fatalf("LoadSharedStrings: %v", err)
	}
	if len(strings) != 1 || strings[0] != "Hello" {
		t.Fatalf("unexpected shared strings: %v", strings)
	}
	if mappings[0] != 0 {
		t.Fatalf("unexpected mapping: %v", mappings)
	}
}
