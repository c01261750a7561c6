package sheet

import (
	"io"
	"path/filepath"
	"strings"
)

// OpenSpreadsheet opens fileName, picking a decoder by its file extension
// (an optional "?..." query suffix, as a caller embedding a URI might pass,
// is ignored when extracting it).
func OpenSpreadsheet(fileName string) (Spreadsheet, error) {
	uri := fileName
	if idx := strings.IndexByte(uri, '?'); idx >= 0 {
		uri = uri[:idx]
	}
	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(uri), "."))

	switch extension {
	case "xlsx", "xlsm", "xlam":
		return openXlsx(fileName)
	case "xlsb":
		return openXlsb(fileName)
	case "xls", "xla", "et", "ett":
		return openXls(fileName)
	case "ods":
		return openOds(fileName)
	default:
		return nil, &UnsupportedFormatError{Path: fileName}
	}
}

// OpenSpreadsheetReader opens a workbook already held in memory -- e.g. a
// byte blob a host fetched over a remote side channel and wrapped in a
// bytes.Reader -- dispatching on name's extension exactly as OpenSpreadsheet
// does. The core never performs the fetch itself; it only consumes the
// reader it's handed.
func OpenSpreadsheetReader(name string, r io.ReadSeeker) (Spreadsheet, error) {
	uri := name
	if idx := strings.IndexByte(uri, '?'); idx >= 0 {
		uri = uri[:idx]
	}
	extension := strings.ToLower(strings.TrimPrefix(filepath.Ext(uri), "."))

	switch extension {
	case "xlsx", "xlsm", "xlam":
		return openXlsxReader(name, r)
	case "xlsb":
		return openXlsbReader(name, r)
	case "xls", "xla", "et", "ett":
		return openXlsReader(name, r)
	case "ods":
		return openOdsReader(name, r)
	default:
		return nil, &UnsupportedFormatError{Path: name}
	}
}

// FileSheetPatterns pairs an optional file-name glob with the sheet-name
// glob it restricts -- an absent FilePattern matches every file.
type FileSheetPatterns struct {
	FilePattern  string
	SheetPattern string
}

// OpenedSpreadsheet is one file opened by OpenSpreadsheets, alongside the
// sheet-name patterns (if any) that apply to it.
type OpenedSpreadsheet struct {
	Spreadsheet       Spreadsheet
	SheetNamePatterns []string
}

// OpenSpreadsheets opens every file in files, associating each with the
// subset of patterns whose FilePattern (when set) matches its name. A file
// matched by no pattern's FilePattern gets a nil SheetNamePatterns, meaning
// "every sheet accepted" (see Criteria.Accept).
func OpenSpreadsheets(files []string, patterns []FileSheetPatterns) ([]OpenedSpreadsheet, error) {
	opened := make([]OpenedSpreadsheet, 0, len(files))
	for _, path := range files {
		spreadsheet, err := OpenSpreadsheet(path)
		if err != nil {
			return nil, withPrefix(path, err)
		}

		var sheetPatterns []string
		if patterns != nil {
			for _, p := range patterns {
				if p.FilePattern == "" {
					sheetPatterns = append(sheetPatterns, p.SheetPattern)
					continue
				}
				if ok, _ := filepath.Match(p.FilePattern, spreadsheet.Name()); ok {
					sheetPatterns = append(sheetPatterns, p.SheetPattern)
				}
			}
		}

		opened = append(opened, OpenedSpreadsheet{
			Spreadsheet:       spreadsheet,
			SheetNamePatterns: sheetPatterns,
		})
	}
	return opened, nil
}
