package sheet

// Spreadsheet is the common surface every container format (xls, xlsb, xlsx,
// ods) implements, letting analyze.go and the CLI work with any of them
// without caring which one opened a given file.
type Spreadsheet interface {
	// Name returns the spreadsheet's originating file name.
	Name() string

	// LoadSharedStrings returns the shared string table, optionally limited
	// to a subset of indexes, along with a mapping from each requested
	// original index to its position in the returned slice.
	LoadSharedStrings(indexes map[int]struct{}) ([]string, map[int]int, error)

	// ReadSheets reads every sheet accepted by criteria into memory.
	ReadSheets(criteria Criteria) ([]*Sheet, error)

	// SheetNames lists every sheet the workbook declares, in declaration
	// order and unfiltered by any Criteria -- used to validate sheet-name
	// patterns against what a file actually contains.
	SheetNames() ([]string, error)
}
