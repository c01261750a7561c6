package sheet

import (
	"io"
	"math"
	"strconv"
)

// BIFF12 record type identifiers used by .xlsb workbook, styles, sheet, and
// shared-string parts.
const (
	brtRowHdr         = 0
	brtCellRk         = 2
	brtCellError      = 3
	brtCellBool       = 4
	brtCellReal       = 5
	brtCellSt         = 6
	brtCellIsst       = 7
	brtFmlaString     = 8
	brtFmlaNum        = 9
	brtFmlaBool       = 10
	brtFmlaError      = 11
	brtSstItem        = 19
	brtFrtBegin       = 35
	brtFrtEnd         = 36
	brtFmt            = 44
	brtXf             = 47
	brtCellRString    = 62
	brtEndBundleShs   = 144
	brtBeginSheetData = 145
	brtEndSheetData   = 146
	brtWbProp         = 153
	brtBundleSh       = 156
	brtBeginSst       = 159
	brtBeginFmts      = 615
	brtBeginCellXfs   = 617
)

var xlsbFrtSkips = []skipRange{{beginning: brtFrtBegin, ending: brtFrtEnd}}

// xlsbSpreadsheet reads a .xlsb (Excel Binary Workbook) file: an OOXML zip
// container whose parts are BIFF12 record streams instead of XML.
type xlsbSpreadsheet struct {
	fileName      string
	zip           *zipContainer
	numberFormats []CellType
	sheets        []sheetRef
}

func openXlsb(fileName string) (*xlsbSpreadsheet, error) {
	zip, err := openExcelContainer(fileName)
	if err != nil {
		return nil, err
	}
	return newXlsbSpreadsheet(fileName, zip)
}

// openXlsbReader is the io.ReadSeeker analogue of openXlsb, for a workbook
// already held in memory rather than addressable as a local file path.
func openXlsbReader(fileName string, r io.ReadSeeker) (*xlsbSpreadsheet, error) {
	zip, err := openExcelContainerReader(fileName, r)
	if err != nil {
		return nil, err
	}
	return newXlsbSpreadsheet(fileName, zip)
}

func newXlsbSpreadsheet(fileName string, zip *zipContainer) (*xlsbSpreadsheet, error) {
	sheets, is1904, err := loadWorkbookXlsb(zip)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, &EmptyWorkbookError{Path: fileName}
	}
	numberFormats, err := loadNumberFormatsXlsb(zip, is1904)
	if err != nil {
		return nil, err
	}
	return &xlsbSpreadsheet{
		fileName:      fileName,
		zip:           zip,
		numberFormats: numberFormats,
		sheets:        sheets,
	}, nil
}

func (x *xlsbSpreadsheet) Name() string { return x.fileName }

func (x *xlsbSpreadsheet) LoadSharedStrings(indexes map[int]struct{}) ([]string, map[int]int, error) {
	var sharedStrings []string
	mappings := make(map[int]int)

	reader, closer, ok, err := x.zip.biffReader("xl/sharedStrings.bin")
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return sharedStrings, mappings, nil
	}
	defer closer.Close()

	remaining := len(indexes)
	if _, err := reader.find(brtBeginSst); err != nil {
		return nil, nil, err
	}
	count := reader.getUsize(4)
	for id := 0; id < count; id++ {
		if _, err := reader.findWith(brtSstItem, xlsbFrtSkips); err != nil {
			return nil, nil, err
		}
		if indexes == nil {
			s, err := reader.getStr(1)
			if err != nil {
				return nil, nil, err
			}
			sharedStrings = append(sharedStrings, s)
			continue
		}
		if _, want := indexes[id]; !want {
			continue
		}
		s, err := reader.getStr(1)
		if err != nil {
			return nil, nil, err
		}
		mappings[id] = len(sharedStrings)
		sharedStrings = append(sharedStrings, s)
		remaining--
		if remaining == 0 {
			break
		}
	}
	return sharedStrings, mappings, nil
}

func (x *xlsbSpreadsheet) SheetNames() ([]string, error) {
	names := make([]string, len(x.sheets))
	for i, ref := range x.sheets {
		names[i] = ref.name
	}
	return names, nil
}

func (x *xlsbSpreadsheet) ReadSheets(criteria Criteria) ([]*Sheet, error) {
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

func (x *xlsbSpreadsheet) readSheet(ref sheetRef, criteria Criteria) (*Sheet, error) {
	reader, closer, ok, err := x.zip.biffReader(ref.path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingContainerPartError{Part: ref.path}
	}
	defer closer.Close()

	sheet := NewSheet(x.fileName, ref.name, criteria.Range, criteria.RowsLimit, criteria.SkipEmptyRows)
	lastRow := sheet.chunkRowLower
	row := 0

	if _, err := reader.find(brtBeginSheetData); err != nil {
		return nil, err
	}

records:
	for {
		tag, err := reader.next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch tag {
		case brtEndSheetData:
			break records
		case brtRowHdr:
			row = reader.getUsize(0)
			if sheet.afterRowUpperBound(row) {
				break records
			}
		case brtCellRk, brtCellBool, brtFmlaBool, brtCellReal, brtFmlaNum,
			brtCellSt, brtFmlaString, brtCellRString, brtCellIsst,
			brtCellError, brtFmlaError:
			if sheet.beforeRowLowerBound(row) {
				continue
			}
			col := reader.getUsize(0)
			if !sheet.Contains(row, col) {
				continue
			}
			if lastRow != nil && criteria.EndAtEmptyRow &&
				((sheet.IsEmpty() && *lastRow != row) || (!sheet.IsEmpty() && *lastRow+1 < row)) {
				break records
			}
			r := row
			lastRow = &r

			var result xlsCellResult
			switch tag {
			case brtCellBool, brtFmlaBool:
				result = readBoolCellXlsb(reader)
			case brtCellReal, brtFmlaNum:
				result = readRealCellXlsb(reader)
			case brtCellSt, brtFmlaString:
				result, err = readStCellXlsb(reader)
			case brtCellRString:
				result, err = readRichStringCellXlsb(reader)
			case brtCellIsst:
				result = readSharedStringCellXlsb(reader)
			case brtCellError, brtFmlaError:
				result = readErrorCellXlsb(reader)
			default:
				result = readRkCellXlsb(reader)
			}
			if err != nil {
				return nil, err
			}

			kind := result.kind
			if result.hasFormatIndex {
				kind = x.numberFormats[result.formatIndex]
			}
			if kind != ErrorValue {
				if result.value != "" {
					sheet.Push(Cell{Row: row, Col: col, Kind: kind, Value: result.value})
				}
			} else if !criteria.ErrorAsNull {
				return nil, &CellValueError{
					File: sheet.FileName, Sheet: sheet.Name,
					Reference: indexToReference(row, col), Message: result.value,
				}
			}
		}
	}
	sheet.Finish(criteria.EndAtEmptyRow)
	return sheet, nil
}

// loadWorkbookXlsb reads xl/workbook.bin, resolving each BRT_BUNDLE_SH entry
// to the worksheet part it points at via the workbook's relationships, and
// recording whether the 1904 date system flag is set.
func loadWorkbookXlsb(zip *zipContainer) ([]sheetRef, bool, error) {
	relationships, err := loadRelationships(zip, "xl/_rels/workbook.bin.rels")
	if err != nil {
		return nil, false, err
	}
	reader, closer, ok, err := zip.biffReader("xl/workbook.bin")
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &MissingContainerPartError{Part: "xl/workbook.bin"}
	}
	defer closer.Close()

	var sheets []sheetRef
	is1904 := false
	for {
		tag, err := reader.next()
		if err != nil {
			return nil, false, err
		}
		switch tag {
		case brtEndBundleShs:
			return sheets, is1904, nil
		case brtBundleSh:
			id, bound, err := reader.getStrAndBound(8)
			if err != nil {
				return nil, false, err
			}
			if path, ok := relationships[id]; ok {
				name, err := reader.getStr(bound)
				if err != nil {
					return nil, false, err
				}
				sheets = append(sheets, sheetRef{name: name, path: path})
			}
		case brtWbProp:
			is1904 = reader.buffer[0]&0x1 != 0
		}
	}
}

// loadNumberFormatsXlsb reads xl/styles.bin's custom formats and cell-format
// (xf) index table and resolves each to a CellType.
func loadNumberFormatsXlsb(zip *zipContainer, is1904 bool) ([]CellType, error) {
	reader, closer, ok, err := zip.biffReader("xl/styles.bin")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	defer closer.Close()

	customFormats := make(map[string]CellType)
	var formatIndexes []string
	for {
		tag, err := reader.next()
		if err != nil {
			return nil, err
		}
		switch tag {
		case brtBeginFmts:
			count := reader.getUsize(0)
			for i := 0; i < count; i++ {
				if _, err := reader.find(brtFmt); err != nil {
					return nil, err
				}
				id := reader.getU16(0)
				format, err := reader.getStr(2)
				if err != nil {
					return nil, err
				}
				customFormats[strconv.Itoa(int(id))] = parseCustomNumberFormat(format, is1904)
			}
		case brtBeginCellXfs:
			count := reader.getUsize(0)
			for i := 0; i < count; i++ {
				if _, err := reader.find(brtXf); err != nil {
					return nil, err
				}
				id := reader.getU16(2)
				formatIndexes = append(formatIndexes, strconv.Itoa(int(id)))
			}
			return loadNumberFormats(formatIndexes, customFormats, is1904), nil
		}
	}
}

func readBoolCellXlsb(reader *biff12Reader) xlsCellResult {
	value := "0"
	if reader.buffer[8] != 0 {
		value = "1"
	}
	return xlsCellResult{kind: Boolean, value: value}
}

func readRealCellXlsb(reader *biff12Reader) xlsCellResult {
	index := reader.getStyle(4)
	value := reader.getF64(8)
	return xlsCellResult{formatIndex: index, hasFormatIndex: true, value: strconv.FormatFloat(value, 'f', -1, 64)}
}

func readStCellXlsb(reader *biff12Reader) (xlsCellResult, error) {
	value, err := reader.getStr(8)
	if err != nil {
		return xlsCellResult{}, err
	}
	return xlsCellResult{kind: InlineString, value: value}, nil
}

func readRichStringCellXlsb(reader *biff12Reader) (xlsCellResult, error) {
	value, err := reader.getStr(9)
	if err != nil {
		return xlsCellResult{}, err
	}
	return xlsCellResult{kind: InlineString, value: value}, nil
}

func readSharedStringCellXlsb(reader *biff12Reader) xlsCellResult {
	value := reader.getUsize(8)
	return xlsCellResult{kind: SharedString, value: strconv.Itoa(value)}
}

func readErrorCellXlsb(reader *biff12Reader) xlsCellResult {
	return xlsCellResult{kind: ErrorValue, value: errorCodeText(reader.buffer[8])}
}

// readRkCellXlsb decodes an RK-compressed number cell the same way
// biff8Reader.readRKNumber does, reading the compressed value directly out
// of the reader's shared record buffer rather than a length-prefixed field.
func readRkCellXlsb(reader *biff12Reader) xlsCellResult {
	index := reader.getStyle(4)
	isPercent := reader.buffer[8]&0x1 != 0
	isInt := reader.buffer[8]&0x2 != 0
	reader.buffer[8] &= 0xFC

	var value float64
	if isInt {
		value = float64(reader.getI32(8) >> 2)
	} else {
		bits := uint64(reader.getU32(8)>>2) << 34
		value = math.Float64frombits(bits)
	}
	if isPercent {
		value /= 100
	}
	var text string
	if isInt && !isPercent {
		text = strconv.FormatInt(int64(value), 10)
	} else {
		text = strconv.FormatFloat(value, 'f', -1, 64)
	}
	return xlsCellResult{formatIndex: index, hasFormatIndex: true, value: text}
}
