package sheet

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

// xlsxSpreadsheet reads a .xlsx/.xlsm/.xlam OOXML SpreadsheetML workbook: an
// OOXML zip container whose worksheet, workbook, and style parts are XML.
type xlsxSpreadsheet struct {
	fileName      string
	zip           *zipContainer
	numberFormats []CellType
	sheets        []sheetRef
}

func openXlsx(fileName string) (*xlsxSpreadsheet, error) {
	zip, err := openExcelContainer(fileName)
	if err != nil {
		return nil, err
	}
	return newXlsxSpreadsheet(fileName, zip)
}

// openXlsxReader is the io.ReadSeeker analogue of openXlsx, for a workbook
// already held in memory rather than addressable as a local file path.
func openXlsxReader(fileName string, r io.ReadSeeker) (*xlsxSpreadsheet, error) {
	zip, err := openExcelContainerReader(fileName, r)
	if err != nil {
		return nil, err
	}
	return newXlsxSpreadsheet(fileName, zip)
}

func newXlsxSpreadsheet(fileName string, zip *zipContainer) (*xlsxSpreadsheet, error) {
	sheets, is1904, err := loadWorkbookXlsx(zip)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, &EmptyWorkbookError{Path: fileName}
	}
	numberFormats, err := loadNumberFormatsXlsx(zip, is1904)
	if err != nil {
		return nil, err
	}
	return &xlsxSpreadsheet{
		fileName:      fileName,
		zip:           zip,
		numberFormats: numberFormats,
		sheets:        sheets,
	}, nil
}

func (x *xlsxSpreadsheet) Name() string { return x.fileName }

func (x *xlsxSpreadsheet) LoadSharedStrings(indexes map[int]struct{}) ([]string, map[int]int, error) {
	var sharedStrings []string
	mappings := make(map[int]int)

	decoder, closer, ok, err := x.zip.xmlDecoder("xl/sharedStrings.xml")
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return sharedStrings, mappings, nil
	}
	defer closer.Close()

	id := 0
	remaining := len(indexes)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "si" {
			continue
		}
		if indexes == nil {
			s, err := readXMLStringValue(decoder, "si", false)
			if err != nil {
				return nil, nil, err
			}
			sharedStrings = append(sharedStrings, s)
			id++
			continue
		}
		if _, want := indexes[id]; !want {
			id++
			continue
		}
		s, err := readXMLStringValue(decoder, "si", false)
		if err != nil {
			return nil, nil, err
		}
		mappings[id] = len(sharedStrings)
		sharedStrings = append(sharedStrings, s)
		id++
		remaining--
		if remaining == 0 {
			break
		}
	}
	return sharedStrings, mappings, nil
}

func (x *xlsxSpreadsheet) SheetNames() ([]string, error) {
	names := make([]string, len(x.sheets))
	for i, ref := range x.sheets {
		names[i] = ref.name
	}
	return names, nil
}

func (x *xlsxSpreadsheet) ReadSheets(criteria Criteria) ([]*Sheet, error) {
	var sheets []*Sheet
	sheetCount := 0
	for _, ref := range x.sheets {
		if criteria.SheetLimit != nil && sheetCount >= *criteria.SheetLimit {
			break
		}
		if !criteria.Accept(ref.name) {
			continue
		}
		sheetCount++

		sheet, err := x.readSheet(ref, criteria)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func (x *xlsxSpreadsheet) readSheet(ref sheetRef, criteria Criteria) (*Sheet, error) {
	decoder, closer, ok, err := x.zip.xmlDecoder(ref.path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingContainerPartError{Part: ref.path}
	}
	defer closer.Close()

	sheet := NewSheet(x.fileName, ref.name, criteria.Range, criteria.RowsLimit, criteria.SkipEmptyRows)
	lastRow := sheet.chunkRowLower
	rowCount, colCount := 0, 0
	row, col := 0, 0
	kind := Empty
	value := ""

events:
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "c":
				if r, ok := attrValue(t, "r"); ok {
					if rr, cc, ok := referenceToIndex(r); ok {
						row, col = rr, cc
					} else {
						row, col = rowCount, colCount
					}
				} else {
					row, col = rowCount, colCount
				}
				colCount++
				if sheet.afterRowUpperBound(row) {
					break events
				}
				if !sheet.Contains(row, col) {
					kind = Empty
					continue
				}
				kind = Number
				if t, ok := attrValue(t, "t"); ok {
					switch t {
					case "inlineStr", "str":
						kind = InlineString
					case "s":
						kind = SharedString
					case "d":
						kind = IsoDateTime
					case "b":
						kind = Boolean
					case "e":
						if criteria.ErrorAsNull {
							kind = Empty
						} else {
							kind = ErrorValue
						}
					default:
						kind = Number
					}
				}
				if kind == Number {
					if s, ok := attrValue(t, "s"); ok && s != "" {
						if index, err := strconv.Atoi(s); err == nil && index < len(x.numberFormats) {
							kind = x.numberFormats[index]
						}
					}
				}
			case "is":
				if kind != Empty {
					v, err := readXMLStringValue(decoder, "is", false)
					if err != nil {
						return nil, err
					}
					value = v
				}
			case "v":
				if kind != Empty {
					v, err := readXMLStringValue(decoder, "v", true)
					if err != nil {
						return nil, err
					}
					value = v
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "row":
				rowCount++
				colCount = 0
			case "c":
				if kind == Empty || value == "" {
					continue
				}
				if kind == ErrorValue {
					return nil, &CellValueError{
						File: sheet.FileName, Sheet: sheet.Name,
						Reference: indexToReference(row, col), Message: value,
					}
				}
				if lastRow != nil && criteria.EndAtEmptyRow &&
					((sheet.IsEmpty() && *lastRow != row) || (!sheet.IsEmpty() && *lastRow+1 < row)) {
					break events
				}
				r := row
				lastRow = &r
				sheet.Push(Cell{Row: row, Col: col, Kind: kind, Value: value})
				value = ""
			}
		}
	}
	sheet.Finish(criteria.EndAtEmptyRow)
	return sheet, nil
}

// loadWorkbookXlsx reads xl/workbook.xml, resolving each <sheet> element to
// the worksheet part its relationship id points at, and recording the
// date1904 flag from <workbookPr>.
func loadWorkbookXlsx(zip *zipContainer) ([]sheetRef, bool, error) {
	relationships, err := loadRelationships(zip, "xl/_rels/workbook.xml.rels")
	if err != nil {
		return nil, false, err
	}
	decoder, closer, ok, err := zip.xmlDecoder("xl/workbook.xml")
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &MissingContainerPartError{Part: "xl/workbook.xml"}
	}
	defer closer.Close()

	var sheets []sheetRef
	is1904 := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "sheet":
			name, hasName := attrValue(start, "name")
			id, hasID := attrValue(start, "id")
			if !hasName || !hasID {
				continue
			}
			if path, ok := relationships[id]; ok {
				sheets = append(sheets, sheetRef{name: name, path: path})
			}
		case "workbookPr":
			if v, ok := attrValue(start, "date1904"); ok {
				is1904 = v == "1" || v == "true"
			}
		}
	}
	return sheets, is1904, nil
}

// loadNumberFormatsXlsx reads xl/styles.xml's <numFmts> custom formats and
// <cellXfs> style index table and resolves each to a CellType.
func loadNumberFormatsXlsx(zip *zipContainer, is1904 bool) ([]CellType, error) {
	decoder, closer, ok, err := zip.xmlDecoder("xl/styles.xml")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer closer.Close()

	customFormats := make(map[string]CellType)
	var formatIndexes []string
	inCustomFormats := false
	inFormatIndexes := false
	hasCustomFormats := false
	hasFormatIndexes := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "numFmts":
				hasCustomFormats = true
				inCustomFormats = true
			case "numFmt":
				if !inCustomFormats {
					continue
				}
				id, hasID := attrValue(t, "numFmtId")
				format, hasFormat := attrValue(t, "formatCode")
				if hasID && hasFormat {
					customFormats[id] = parseCustomNumberFormat(format, is1904)
				}
			case "cellXfs":
				hasFormatIndexes = true
				inFormatIndexes = true
			case "xf":
				if !inFormatIndexes {
					continue
				}
				if id, ok := attrValue(t, "numFmtId"); ok {
					formatIndexes = append(formatIndexes, id)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "numFmts":
				inCustomFormats = false
				if hasCustomFormats && hasFormatIndexes {
					return loadNumberFormats(formatIndexes, customFormats, is1904), nil
				}
			case "cellXfs":
				inFormatIndexes = false
				if hasCustomFormats && hasFormatIndexes {
					return loadNumberFormats(formatIndexes, customFormats, is1904), nil
				}
			}
		}
	}
	return loadNumberFormats(formatIndexes, customFormats, is1904), nil
}

// readXMLStringValue reads text content up to the matching end element
// named endLocal, skipping phonetic-text (<rPh>) annotations and collecting
// only text found inside a <t> element unless isTextContent already treats
// all text as significant (the "v" cell-value element has no <t> wrapper).
func readXMLStringValue(decoder *xml.Decoder, endLocal string, isTextContent bool) (string, error) {
	isPhonetic := false
	isText := isTextContent
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			switch t.Name.Local {
			case endLocal:
				return sb.String(), nil
			case "rPh":
				isPhonetic = false
			case "t":
				if isText {
					isText = false
				}
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "rPh":
				isPhonetic = true
			case "t":
				if !isPhonetic {
					isText = true
				}
			}
		case xml.CharData:
			if isText {
				sb.Write(t)
			}
		}
	}
}
