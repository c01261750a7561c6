package sheet

import "path/filepath"

// Criteria controls how sheets are selected and how their cells are read
// into columnar data.
type Criteria struct {
	// SheetNamePatterns, when non-nil, restricts which sheets are read to
	// those whose name matches at least one glob pattern (path/filepath.Match
	// syntax, the standard-library analogue of the original's glob::Pattern
	// -- no pack repo pulls in a third-party glob library).
	SheetNamePatterns []string

	// SheetLimit caps how many sheets from a file are processed, nil for
	// unlimited.
	SheetLimit *int

	// Range restricts which rows/columns are extracted from each sheet.
	Range *Range

	// RowsLimit caps how many data rows are read per sheet, nil for
	// unlimited.
	RowsLimit *int

	// Nulls is the set of literal values that should be treated as a
	// missing/NULL cell rather than as literal text.
	Nulls map[string]struct{}

	// ErrorAsNull converts a cell parse failure into a null value instead of
	// propagating a CellValueError.
	ErrorAsNull bool

	// SkipEmptyRows omits rows where every column is empty, starting a new
	// chunk boundary at the gap.
	SkipEmptyRows bool

	// EndAtEmptyRow stops reading a sheet as soon as a fully empty row is
	// encountered, instead of continuing to the sheet's declared extent.
	EndAtEmptyRow bool
}

// Accept reports whether a sheet name matches the criteria's sheet-name
// patterns. With no patterns configured, every sheet name is accepted.
func (c Criteria) Accept(sheetName string) bool {
	if c.SheetNamePatterns == nil {
		return true
	}
	for _, pattern := range c.SheetNamePatterns {
		if ok, _ := filepath.Match(pattern, sheetName); ok {
			return true
		}
	}
	return false
}
