package sheet

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildXlsxZip(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func sampleXlsxParts() map[string]string {
	return map[string]string{
		"xl/workbook.xml": `<?xml version="1.0"?>
<workbook><sheets><sheet name="Sheet1" sheetId="1" r:id="rId1" xmlns:r="r"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?>
<Relationships><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/></Relationships>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?>
<worksheet><sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>Name</t></is></c><c r="B1" t="inlineStr"><is><t>Age</t></is></c></row>
<row r="2"><c r="A2" t="s"><v>0</v></c><c r="B2"><v>42</v></c></row>
</sheetData></worksheet>`,
		"xl/sharedStrings.xml": `<?xml version="1.0"?>
<sst count="1" uniqueCount="1"><si><t>Ada</t></si></sst>`,
	}
}

func TestOpenXlsxReadSheets(t *testing.T) {
	data := buildXlsxZip(t, sampleXlsxParts())
	x, err := openXlsxReader("workbook.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("openXlsxReader: %v", err)
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
	if len(sh.Cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(sh.Cells))
	}
}

func TestOpenXlsxSharedStrings(t *testing.T) {
	data := buildXlsxZip(t, sampleXlsxParts())
	x, err := openXlsxReader("workbook.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("openXlsxReader: %v", err)
	}
	strings, mappings, err := x.LoadSharedStrings(map[int]struct{}{0: {}})
	if err != nil {
		t.Fatalf("LoadSharedStrings: %v", err)
	}
	if len(strings) != 1 || strings[0] != "Ada" {
		t.Fatalf("unexpected shared strings: %v", strings)
	}
	if mappings[0] != 0 {
		t.Fatalf("unexpected mapping: %v", mappings)
	}
}

func TestOpenXlsxEmptyWorkbook(t *testing.T) {
	data := buildXlsxZip(t, map[string]string{
		"xl/workbook.xml":            `<?xml version="1.0"?><workbook><sheets/></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0"?><Relationships/>`,
	})
	_, err := openXlsxReader("empty.xlsx", bytes.NewReader(data))
	if _, ok := err.(*EmptyWorkbookError); !ok {
		t.Fatalf("expected EmptyWorkbookError, got %v", err)
	}
}
