package sheet

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"
)

func TestOpenXlsReaderRejectsNonCFBData(t *testing.T) {
	_, err := openXlsReader("workbook.xls", bytes.NewReader([]byte("not a compound file")))
	if err == nil {
		t.Fatal("expected an error for non-CFB data")
	}
}

// --- minimal BIFF8 record builders, enough to exercise MulRk/Rk/Formula/
// LabelSst decoding without pulling in a real .xls fixture file -----------

func biffRecord(kind uint16, body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint16(out[0:2], kind)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(body)))
	copy(out[4:], body)
	return out
}

func biffU16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func biffU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func biffU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// biffRK encodes an integer as a BIFF8 RK value (bit1 set, bit0 clear: the
// remaining 30 bits are the integer shifted left by 2).
func biffRK(v int32) []byte {
	return biffU32(uint32(v<<2) | 0x2)
}

// biffStr16 builds an XLUnicodeString-shaped field: a 2-byte character
// count, a flag byte (0 = compressed, no rich-run/phonetic trailers), and
// the ASCII body -- the shape readXLUnicodeString and
// readXLUnicodeRichExtendedString both expect for a plain compressed string.
func biffStr16(s string) []byte {
	out := append([]byte{}, biffU16(uint16(len(s)))...)
	out = append(out, 0x00)
	return append(out, []byte(s)...)
}

// biffStr8 builds the one-byte-cch analogue biffStr16 uses for
// XLUnicodeStringNoCch fields (e.g. BoundSheet8's sheet name).
func biffStr8(s string) []byte {
	out := []byte{byte(len(s)), 0x00}
	return append(out, []byte(s)...)
}

func utf16LEName(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, 2*(len(units)+1))
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return append(out, 0, 0) // NUL terminator, per the CFB directory-entry convention
}

func cfbDirEntry(name string, index, count int) []byte {
	entry := make([]byte, 128)
	if name != "" {
		nameBytes := utf16LEName(name)
		copy(entry[:64], nameBytes)
		binary.LittleEndian.PutUint16(entry[64:66], uint16(len(nameBytes)))
	}
	binary.LittleEndian.PutUint32(entry[116:120], uint32(index))
	binary.LittleEndian.PutUint64(entry[120:128], uint64(count))
	return entry
}

// buildCFBWorkbook wraps workbookData (a BIFF8 record stream) in a minimal
// valid CFB container holding it under a "Workbook" stream entry. The
// stream is padded to a sector-aligned length of at least 4096 bytes so its
// declared size takes cfb.go's regular-FAT read path rather than the
// ministream/miniFAT path, keeping the container's FAT/directory layout to
// one sector each.
func buildCFBWorkbook(t *testing.T, workbookData []byte) []byte {
	t.Helper()
	const sectorSize = 512

	padded := append([]byte{}, workbookData...)
	for len(padded) < 4096 {
		padded = append(padded, 0)
	}
	if rem := len(padded) % sectorSize; rem != 0 {
		padded = append(padded, make([]byte, sectorSize-rem)...)
	}
	dataSectorCount := len(padded) / sectorSize

	header := make([]byte, sectorSize)
	copy(header[0:8], cfbSignature[:])
	binary.LittleEndian.PutUint16(header[26:28], 3)           // majorVersion
	binary.LittleEndian.PutUint16(header[30:32], 9)           // sectorShift -> 512-byte sectors
	binary.LittleEndian.PutUint32(header[44:48], 1)           // fatCount
	binary.LittleEndian.PutUint32(header[48:52], 1)           // directoryShift: sector 1
	binary.LittleEndian.PutUint32(header[60:64], 0xFFFFFFFE)  // miniFatShift: unused
	binary.LittleEndian.PutUint32(header[64:68], 0)           // miniFatCount
	binary.LittleEndian.PutUint32(header[68:72], 0xFFFFFFFE)  // difatShift: no extra DIFAT sectors
	binary.LittleEndian.PutUint32(header[72:76], 0)           // difatCount
	binary.LittleEndian.PutUint32(header[76:80], 0)           // DIFAT[0]: FAT lives in sector 0
	for off := 80; off < sectorSize; off += 4 {
		binary.LittleEndian.PutUint32(header[off:off+4], 0xFFFFFFFF) // FREESECT padding
	}

	fatSector := make([]byte, sectorSize)
	fatEntries := make([]uint32, sectorSize/4)
	fatEntries[0] = 0xFFFFFFFD // sector 0: FAT itself
	fatEntries[1] = 0xFFFFFFFE // sector 1: directory, single-sector chain
	for i := 0; i < dataSectorCount; i++ {
		sector := 2 + i
		if i == dataSectorCount-1 {
			fatEntries[sector] = 0xFFFFFFFE
		} else {
			fatEntries[sector] = uint32(sector + 1)
		}
	}
	for i := 2 + dataSectorCount; i < len(fatEntries); i++ {
		fatEntries[i] = 0xFFFFFFFF
	}
	for i, v := range fatEntries {
		binary.LittleEndian.PutUint32(fatSector[i*4:i*4+4], v)
	}

	dirSector := make([]byte, sectorSize)
	copy(dirSector[0:128], cfbDirEntry("Root Entry", 1, 0))
	copy(dirSector[128:256], cfbDirEntry("Workbook", 2, len(padded)))

	var buf bytes.Buffer
	buf.Write(header)
	buf.Write(fatSector)
	buf.Write(dirSector)
	buf.Write(padded)
	return buf.Bytes()
}

// buildBiff8Workbook assembles a minimal globals section (codepage, one XF
// pointing at the "General" built-in format, a one-entry SST, one
// BoundSheet8) followed by one worksheet stream exercising MulRk, a
// standalone Rk cell, a Formula record with a cached string result (the
// flag==0 dispatch that requires reading the following String record), and
// a LabelSst cell.
func buildBiff8Workbook() []byte {
	codepage := biffRecord(codePageRecord, biffU16(1252))
	xf := biffRecord(xfRecord, append(biffU16(0), biffU16(0)...)) // numFmtId 0 = General
	sst := biffRecord(sstRecord, append(append(biffU32(0), biffU32(1)...), biffStr16("Hello")...))

	// BoundSheet8's pointer field is filled in below once the globals
	// section's total length (and hence the sheet's BOF offset) is known.
	boundSheetBody := func(pointer uint32) []byte {
		body := append(biffU32(pointer), biffU16(0)...)
		return append(body, biffStr8("Sheet1")...)
	}
	boundSheetPlaceholder := biffRecord(boundSheet8Record, boundSheetBody(0))
	eof := biffRecord(eofRecord, nil)

	globalsLen := len(codepage) + len(xf) + len(sst) + len(boundSheetPlaceholder) + len(eof)
	boundSheet := biffRecord(boundSheet8Record, boundSheetBody(uint32(globalsLen)))

	var globals []byte
	globals = append(globals, codepage...)
	globals = append(globals, xf...)
	globals = append(globals, sst...)
	globals = append(globals, boundSheet...)
	globals = append(globals, eof...)

	sheetBOF := biffRecord(bofRecord, make([]byte, 16))

	mulRk := biffRecord(mulRkRecord, concatBytes(
		biffU16(0),    // row
		biffU16(0),    // first col
		biffU16(0),    // xf for col0
		biffRK(10),    // value 10
		biffU16(0),    // xf for col1
		biffRK(20),    // value 20
		biffU16(1),    // last col
	))

	rk := biffRecord(rkRecord, concatBytes(
		biffU16(1), // row
		biffU16(0), // col
		biffU16(0), // xf
		biffRK(30), // value 30
	))

	formula := biffRecord(formulaRecord, concatBytes(
		biffU16(2),                          // row
		biffU16(0),                          // col
		biffU16(0),                          // xf
		biffU64(0xFFFF000000000000),         // cached-string dispatch: top 16 bits set, flag byte 0
	))
	str := biffRecord(stringRecord, biffStr16("Total"))

	labelSst := biffRecord(labelSstRecord, concatBytes(
		biffU16(3),  // row
		biffU16(0),  // col
		biffU16(0),  // xf
		biffU32(0),  // shared-string index
	))

	sheetEOF := biffRecord(eofRecord, nil)

	var workbook []byte
	workbook = append(workbook, globals...)
	workbook = append(workbook, sheetBOF...)
	workbook = append(workbook, mulRk...)
	workbook = append(workbook, rk...)
	workbook = append(workbook, formula...)
	workbook = append(workbook, str...)
	workbook = append(workbook, labelSst...)
	workbook = append(workbook, sheetEOF...)
	return workbook
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestOpenXlsReaderReadsBiff8Records(t *testing.T) {
	data := buildCFBWorkbook(t, buildBiff8Workbook())
	x, err := openXlsReader("workbook.xls", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("openXlsReader: %v", err)
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
