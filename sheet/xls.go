package sheet

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// BIFF8 record type identifiers.
const (
	formulaRecord     = 6
	eofRecord         = 10
	date1904Record    = 34
	filePassRecord    = 47
	codePageRecord    = 66
	boundSheet8Record = 133
	mulRkRecord       = 189
	xfRecord          = 224
	sstRecord         = 252
	labelSstRecord    = 253
	numberRecord      = 515
	labelRecord       = 516
	boolErrRecord     = 517
	stringRecord      = 519
	rkRecord          = 638
	formatRecord      = 1054
	bofRecord         = 2057
)

// xlsCodePageError is returned when a CODEPAGE record names a codepage this
// module has no single-byte encoding for.
type xlsCodePageError struct{ codepage uint16 }

func (e *xlsCodePageError) Error() string {
	return fmt.Sprintf("invalid code page '%d'", e.codepage)
}

// xlsFormulaValueError is returned when a FORMULA record's result field
// carries a flag byte this module does not recognize.
type xlsFormulaValueError struct{ formula uint64 }

func (e *xlsFormulaValueError) Error() string {
	return fmt.Sprintf("invalid formula value '%d'", e.formula)
}

// xlsSheetRef records a worksheet's name and the byte offset of its BOF
// record within the Workbook/Book stream, as discovered by the globals scan.
type xlsSheetRef struct {
	name    string
	pointer int
}

// xlsSpreadsheet reads a legacy .xls/.xla/.et binary workbook: a BIFF8
// record stream inside a CFB container.
type xlsSpreadsheet struct {
	fileName      string
	reader        *biff8Reader
	sharedStrings []string
	numberFormats []CellType
	sheets        []xlsSheetRef
}

// openXls opens fileName, parses the CFB container's Workbook/Book stream's
// globals records, and returns a ready-to-query xlsSpreadsheet.
func openXls(fileName string) (*xlsSpreadsheet, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return openXlsReader(fileName, f)
}

// openXlsReader is the io.ReadSeeker analogue of openXls, for a workbook
// already held in memory (e.g. fetched over a remote side channel) rather
// than addressable as a local file path.
func openXlsReader(fileName string, r io.ReadSeeker) (*xlsSpreadsheet, error) {
	container, err := newCFB(r)
	if err != nil {
		return nil, err
	}
	data, ok, err := container.read("Workbook")
	if err != nil {
		return nil, err
	}
	if !ok {
		data, ok, err = container.read("Book")
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, &EmptyWorkbookError{Path: fileName}
	}
	reader := newBiff8Reader(data)

	is1904 := false
	customFormats := make(map[string]CellType)
	var formatIndexes []string
	var sheets []xlsSheetRef
	var sharedStrings []string

loop:
	for {
		kind, ok := reader.next()
		if !ok {
			break
		}
		switch kind {
		case eofRecord:
			break loop
		case filePassRecord:
			if reader.readU16() != 0 {
				return nil, &PasswordProtectedError{Path: fileName}
			}
		case date1904Record:
			if reader.readU16() == 1 {
				is1904 = true
			}
		case codePageRecord:
			codepage := reader.readU16()
			enc, ok := codepageEncoding(codepage)
			if !ok {
				return nil, &xlsCodePageError{codepage: codepage}
			}
			reader.setEncoding(enc)
		case formatRecord:
			id := reader.readU16()
			format := reader.readXLUnicodeString()
			customFormats[strconv.Itoa(int(id))] = parseCustomNumberFormat(format, is1904)
		case xfRecord:
			reader.skip(2)
			id := reader.readU16()
			formatIndexes = append(formatIndexes, strconv.Itoa(int(id)))
		case sstRecord:
			sharedStrings = loadSharedStringsXls(reader)
		case boundSheet8Record:
			pointer := reader.readUsize()
			reader.skip(2)
			name := reader.readShortXLUnicodeString()
			sheets = append(sheets, xlsSheetRef{name: name, pointer: pointer})
		}
	}
	if len(sheets) == 0 {
		return nil, &EmptyWorkbookError{Path: fileName}
	}

	return &xlsSpreadsheet{
		fileName:      fileName,
		reader:        reader,
		sharedStrings: sharedStrings,
		numberFormats: loadNumberFormats(formatIndexes, customFormats, is1904),
		sheets:        sheets,
	}, nil
}

func (x *xlsSpreadsheet) Name() string { return x.fileName }

// LoadSharedStrings returns the full shared-string table, built once while
// opening the file -- .xls workbooks are small enough that there is no
// benefit to a demand-loaded subset the way the zip-based formats use.
func (x *xlsSpreadsheet) LoadSharedStrings(indexes map[int]struct{}) ([]string, map[int]int, error) {
	mappings := make(map[int]int, len(indexes))
	for key := range indexes {
		mappings[key] = key
	}
	return x.sharedStrings, mappings, nil
}

func (x *xlsSpreadsheet) SheetNames() ([]string, error) {
	names := make([]string, len(x.sheets))
	for i, ref := range x.sheets {
		names[i] = ref.name
	}
	return names, nil
}

func (x *xlsSpreadsheet) ReadSheets(criteria Criteria) ([]*Sheet, error) {
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

		x.reader.seekTo(ref.pointer)
		x.reader.next()
		sheet := NewSheet(x.fileName, ref.name, criteria.Range, criteria.RowsLimit, criteria.SkipEmptyRows)
		lastRow := sheet.chunkRowLower

	records:
		for {
			tag, ok := x.reader.next()
			if !ok {
				break
			}
			switch tag {
			case bofRecord, eofRecord:
				break records
			case mulRkRecord:
				row := int(x.reader.readU16())
				colLowerBound := int(x.reader.readU16())
				colUpperBound := int(x.reader.getU16Back(2))
				for col := colLowerBound; col <= colUpperBound; col++ {
					if !sheet.Contains(row, col) {
						x.reader.skip(6)
						continue
					}
					if lastRow != nil && criteria.EndAtEmptyRow &&
						((sheet.IsEmpty() && *lastRow != row) || (!sheet.IsEmpty() && *lastRow+1 < row)) {
						break records
					}
					r := row
					lastRow = &r
					index := int(x.reader.readU16())
					kind := x.numberFormats[index]
					value := x.reader.readRKNumber()
					sheet.Push(Cell{Row: row, Col: col, Kind: kind, Value: value})
				}
			case boolErrRecord, numberRecord, rkRecord, labelSstRecord, labelRecord, formulaRecord:
				row := int(x.reader.readU16())
				col := int(x.reader.readU16())
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
				var err error
				switch tag {
				case boolErrRecord:
					result = readBoolOrErrorCell(x.reader)
				case numberRecord:
					result = readNumberCell(x.reader)
				case rkRecord:
					result = readRkCell(x.reader)
				case labelSstRecord:
					result = readLabelSstCell(x.reader)
				case labelRecord:
					result = readLabelCell(x.reader)
				default:
					result, err = readFormulaCell(x.reader)
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
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// loadSharedStringsXls reads the SST record's shared-string table.
func loadSharedStringsXls(reader *biff8Reader) []string {
	reader.skip(4)
	count := reader.readUsize()
	strings := make([]string, 0, count)
	for i := 0; i < count; i++ {
		strings = append(strings, reader.readXLUnicodeRichExtendedString())
	}
	return strings
}

// xlsCellResult is the Go analogue of the original's Either<CellType,
// usize>: either a definitive CellType (hasFormatIndex=false) or an index
// into the workbook's numberFormats table to resolve later.
type xlsCellResult struct {
	kind           CellType
	formatIndex    int
	hasFormatIndex bool
	value          string
}

func readBoolOrErrorCell(reader *biff8Reader) xlsCellResult {
	reader.skip(2)
	value := reader.readU8()
	flag := reader.readU8()
	if flag == 0 {
		return xlsCellResult{kind: Boolean, value: strconv.Itoa(int(value))}
	}
	return xlsCellResult{kind: ErrorValue, value: errorCodeText(value)}
}

func readNumberCell(reader *biff8Reader) xlsCellResult {
	index := int(reader.readU16())
	value := reader.readF64()
	return xlsCellResult{formatIndex: index, hasFormatIndex: true, value: strconv.FormatFloat(value, 'f', -1, 64)}
}

func readRkCell(reader *biff8Reader) xlsCellResult {
	index := int(reader.readU16())
	value := reader.readRKNumber()
	return xlsCellResult{formatIndex: index, hasFormatIndex: true, value: value}
}

func readLabelSstCell(reader *biff8Reader) xlsCellResult {
	reader.skip(2)
	value := reader.readUsize()
	return xlsCellResult{kind: SharedString, value: strconv.Itoa(value)}
}

func readLabelCell(reader *biff8Reader) xlsCellResult {
	reader.skip(2)
	value := reader.readXLUnicodeString()
	return xlsCellResult{kind: InlineString, value: value}
}

// readFormulaCell dispatches on a FORMULA record's 8-byte result field: if
// the top 16 bits aren't all set, it is a plain IEEE-754 double; otherwise
// the low byte is a flag selecting a string result (which requires reading
// the STRING record that immediately follows), a boolean, an error code, or
// an empty string.
func readFormulaCell(reader *biff8Reader) (xlsCellResult, error) {
	index := int(reader.readU16())
	formula := reader.readU64()
	isNumber := formula&0xFFFF000000000000 != 0xFFFF000000000000
	flag := formula & 0xFF
	switch {
	case isNumber:
		value := math.Float64frombits(formula)
		return xlsCellResult{formatIndex: index, hasFormatIndex: true, value: strconv.FormatFloat(value, 'f', -1, 64)}, nil
	case flag == 0:
		kind, ok := reader.next()
		if !ok || kind != stringRecord {
			return xlsCellResult{}, &xlsFormulaValueError{formula: formula}
		}
		value := reader.readXLUnicodeString()
		return xlsCellResult{kind: InlineString, value: value}, nil
	case flag == 1:
		value := "0"
		if formula&0xFF0000 > 0 {
			value = "1"
		}
		return xlsCellResult{kind: Boolean, value: value}, nil
	case flag == 2:
		code := uint8((formula >> 16) & 0xFF)
		return xlsCellResult{kind: ErrorValue, value: errorCodeText(code)}, nil
	case flag == 3:
		return xlsCellResult{kind: InlineString, value: ""}, nil
	default:
		return xlsCellResult{}, &xlsFormulaValueError{formula: formula}
	}
}
