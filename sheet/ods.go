package sheet

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
)

// OdsMimeTypeError is returned when a file's mimetype entry doesn't match
// the OpenDocument spreadsheet identifier.
type OdsMimeTypeError struct {
	Path string
}

func (e *OdsMimeTypeError) Error() string {
	return fmt.Sprintf("spreadsheet %q: not an ODS file", e.Path)
}

const odsMimeType = "application/vnd.oasis.opendocument.spreadsheet"

// odsSpreadsheet reads a .ods OpenDocument Spreadsheet file: a zip
// container whose single content.xml part holds every sheet, row, and cell
// as inline XML -- there is no shared-string table or separate style part
// to pre-load, unlike the Excel formats.
type odsSpreadsheet struct {
	fileName string
	zip      *zipContainer
}

func openOds(fileName string) (*odsSpreadsheet, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return newOdsSpreadsheet(fileName, data)
}

func newOdsSpreadsheet(fileName string, data []byte) (*odsSpreadsheet, error) {
	zip, err := openZipContainer(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := checkOdsMime(zip, fileName); err != nil {
		return nil, err
	}
	protected, err := odsIsPasswordProtected(zip)
	if err != nil {
		return nil, err
	}
	if protected {
		return nil, &PasswordProtectedError{Path: fileName}
	}
	return &odsSpreadsheet{fileName: fileName, zip: zip}, nil
}

// openOdsReader is the io.ReadSeeker analogue of openOds, for a workbook
// already held in memory rather than addressable as a local file path.
func openOdsReader(fileName string, r io.ReadSeeker) (*odsSpreadsheet, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return newOdsSpreadsheet(fileName, data)
}

func (o *odsSpreadsheet) Name() string { return o.fileName }

// LoadSharedStrings is a no-op for ODS: cell text is stored inline, so
// there is no shared-string table to pre-scan.
func (o *odsSpreadsheet) LoadSharedStrings(indexes map[int]struct{}) ([]string, map[int]int, error) {
	return nil, map[int]int{}, nil
}

// SheetNames scans content.xml for every <table:table>'s name attribute,
// unfiltered by any Criteria.
func (o *odsSpreadsheet) SheetNames() ([]string, error) {
	decoder, closer, ok, err := o.zip.xmlDecoder("content.xml")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingContainerPartError{Part: "content.xml"}
	}
	defer closer.Close()

	var names []string
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "spreadsheet" {
				return names, nil
			}
		case xml.StartElement:
			if t.Name.Local == "table" {
				if name, ok := attrValue(t, "name"); ok {
					names = append(names, name)
				}
			}
		}
	}
	return names, nil
}

func (o *odsSpreadsheet) ReadSheets(criteria Criteria) ([]*Sheet, error) {
	decoder, closer, ok, err := o.zip.xmlDecoder("content.xml")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &MissingContainerPartError{Part: "content.xml"}
	}
	defer closer.Close()

	var sheets []*Sheet
	sheetCount := 0

sheetSearch:
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "spreadsheet" {
				break sheetSearch
			}
		case xml.StartElement:
			if t.Name.Local != "table" {
				continue
			}
			name, _ := attrValue(t, "name")
			if criteria.SheetLimit != nil && sheetCount >= *criteria.SheetLimit {
				break sheetSearch
			}
			if !criteria.Accept(name) {
				continue
			}
			sheetCount++

			sheet, err := o.readSheet(decoder, name, criteria)
			if err != nil {
				return nil, err
			}
			sheets = append(sheets, sheet)

			if criteria.SheetLimit != nil && sheetCount >= *criteria.SheetLimit {
				break sheetSearch
			}
		}
	}
	return sheets, nil
}

// readSheet consumes one <table:table> element's content, already
// positioned just after its opening tag, row by row and cell by cell,
// honoring the table:number-rows-repeated and table:number-columns-repeated
// attributes ODS uses to compress runs of identical empty cells/rows.
func (o *odsSpreadsheet) readSheet(decoder *xml.Decoder, name string, criteria Criteria) (*Sheet, error) {
	sheet := NewSheet(o.fileName, name, criteria.Range, criteria.RowsLimit, criteria.SkipEmptyRows)
	lastRow := sheet.chunkRowLower

	row, col := 0, 0
	rowCount, colCount := 1, 1
	kind := Empty
	value := ""
	elementContext := false
	commentContext := false

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
			case "table-row":
				rowCount = attrIntDefault(t, "number-rows-repeated", 1)
				col = 0
			case "table-cell", "covered-table-cell":
				value = ""
				colCount = attrIntDefault(t, "number-columns-repeated", 1)
				valueType, hasType := attrValue(t, "value-type")
				if !hasType {
					kind = Empty
				} else {
					switch valueType {
					case "boolean":
						kind = Boolean
					case "date":
						kind = IsoDateTime
					case "time":
						kind = IsoDuration
					case "string":
						if calcType, ok := attrCalcextValueType(t); ok && calcType == "error" {
							if criteria.ErrorAsNull {
								kind = Empty
							} else {
								kind = ErrorValue
							}
						} else {
							kind = InlineString
						}
					default:
						kind = Number
					}
				}
				if hasType {
					switch valueType {
					case "string":
						elementContext = kind != Empty
					case "boolean":
						if b, ok := attrValue(t, "boolean-value"); ok && b != "false" && b != "0" {
							value = "1"
						} else {
							value = "0"
						}
					case "date":
						if v, ok := attrValue(t, "date-value"); ok {
							value = v
						}
					case "time":
						if v, ok := attrValue(t, "time-value"); ok {
							value = v
						}
					default:
						if v, ok := attrValue(t, "value"); ok {
							value = v
						}
					}
				}
			case "annotation", "rPh":
				if elementContext {
					commentContext = true
				}
			case "p":
				if elementContext && !commentContext && value != "" {
					value += "\n"
				}
			case "s":
				if elementContext && !commentContext {
					count := attrIntDefault(t, "c", 1)
					for i := 0; i < count; i++ {
						value += " "
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "table":
				break events
			case "table-row":
				row += rowCount
				if sheet.afterRowUpperBound(row) {
					break events
				}
			case "table-cell", "covered-table-cell":
				if kind != Empty {
					for rowOffset := 0; rowOffset < rowCount; rowOffset++ {
						rowNumber := row + rowOffset
						if sheet.beforeRowLowerBound(rowNumber) {
							continue
						}
						if sheet.afterRowUpperBound(rowNumber) {
							break
						}
						for colOffset := 0; colOffset < colCount; colOffset++ {
							colNumber := col + colOffset
							if sheet.beforeColLowerBound(colNumber) || sheet.afterColUpperBound(colNumber) {
								continue
							}
							if lastRow != nil && criteria.EndAtEmptyRow &&
								((sheet.IsEmpty() && *lastRow != row) || (!sheet.IsEmpty() && *lastRow+1 < row)) {
								break
							}
							r := row
							lastRow = &r
							if kind != ErrorValue {
								if value != "" {
									sheet.Push(Cell{Row: rowNumber, Col: colNumber, Kind: kind, Value: value})
								}
							} else {
								return nil, &CellValueError{
									File: sheet.FileName, Sheet: sheet.Name,
									Reference: indexToReference(row, col), Message: value,
								}
							}
						}
					}
				}
				col += colCount
				elementContext = false
				commentContext = false
			case "annotation", "rPh":
				commentContext = false
			}
		case xml.CharData:
			if elementContext && !commentContext {
				value += string(t)
			}
		}
	}
	sheet.Finish(criteria.EndAtEmptyRow)
	return sheet, nil
}

// attrCalcextValueType returns a table-cell's calcext:value-type attribute,
// the LibreOffice extension spreadsheets use to flag a computed "string"
// cell as actually holding an error result. Since ODS documents usually
// resolve the calcext prefix to its namespace URI rather than leaving it
// literal, this matches on Space containing "calcext" rather than an exact
// prefix, to stay robust to how the decoder reports it.
func attrCalcextValueType(start xml.StartElement) (string, bool) {
	for _, a := range start.Attr {
		if a.Name.Local != "value-type" {
			continue
		}
		if strings.Contains(a.Name.Space, "calcext") {
			return a.Value, true
		}
	}
	return "", false
}

// checkOdsMime validates the zip's mimetype entry, when present, matches
// the ODS spreadsheet identifier -- a stored (uncompressed) entry ODS
// writers place first in the archive as a quick format sniff.
func checkOdsMime(zip *zipContainer, fileName string) error {
	data, ok, err := zip.bytes("mimetype")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if string(data) != odsMimeType {
		return &OdsMimeTypeError{Path: fileName}
	}
	return nil
}

// odsIsPasswordProtected scans META-INF/manifest.xml for an
// encryption-data element nested under a file-entry, the manifest-level
// marker ODS uses for a password-protected part.
func odsIsPasswordProtected(zip *zipContainer) (bool, error) {
	decoder, closer, ok, err := zip.xmlDecoder("META-INF/manifest.xml")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer closer.Close()

	inFileEntry := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "file-entry":
			inFileEntry = true
		case "encryption-data":
			if inFileEntry {
				return true, nil
			}
		}
	}
	return false, nil
}
