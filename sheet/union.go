package sheet

import "path/filepath"

// OpenAll opens every file the same way OpenSpreadsheets does, but
// additionally validates that each supplied pattern actually matched
// something: a FilePattern matching zero opened files raises
// NoFilesMatchedError, a SheetPattern matching no sheet within the file(s)
// it applies to raises SheetNotMatchedError, and -- if not one sheet in any
// file matched any pattern -- NoSheetsMatchedError.
func OpenAll(files []string, patterns []FileSheetPatterns) ([]OpenedSpreadsheet, error) {
	opened, err := OpenSpreadsheets(files, patterns)
	if err != nil {
		return nil, err
	}

	for _, p := range patterns {
		if p.FilePattern == "" {
			continue
		}
		matched := false
		for _, o := range opened {
			if ok, _ := filepath.Match(p.FilePattern, o.Spreadsheet.Name()); ok {
				matched = true
				break
			}
		}
		if !matched {
			return nil, &NoFilesMatchedError{Pattern: p.FilePattern}
		}
	}

	matchedAny := false
	for _, o := range opened {
		names, err := o.Spreadsheet.SheetNames()
		if err != nil {
			return nil, err
		}
		if o.SheetNamePatterns == nil {
			if len(names) > 0 {
				matchedAny = true
			}
			continue
		}
		for _, pattern := range o.SheetNamePatterns {
			found := false
			for _, name := range names {
				if ok, _ := filepath.Match(pattern, name); ok {
					found = true
				}
			}
			if !found {
				return nil, &SheetNotMatchedError{File: o.Spreadsheet.Name(), Pattern: pattern}
			}
			matchedAny = true
		}
	}
	if !matchedAny {
		return nil, &NoSheetsMatchedError{}
	}

	return opened, nil
}

// AnalyzeAll runs AnalyzeSheets across every opened spreadsheet, with
// analyzeRows (when positive) capping each file's inference sample the way
// the "analyze_rows" option does, and presets applied uniformly. It returns
// one []Table per opened file, in the same order.
//
// Unless unionByName is set, every file's tables must agree column-by-column
// (same inferred Kind at each position) with the first file that produced
// any tables -- a positional mismatch raises ColumnTypeMismatchError, since
// positional mode has no other way to reconcile two files whose columns
// disagree. In union_by_name mode no cross-file check is made here; callers
// merge the resulting tables by column name downstream instead.
func AnalyzeAll(opened []OpenedSpreadsheet, hasHeader bool, analyzeRows int, unionByName bool, base Criteria, presets []ColumnPreset) ([][]Table, error) {
	result := make([][]Table, len(opened))
	var reference []Table

	for i, o := range opened {
		criteria := base
		criteria.SheetNamePatterns = o.SheetNamePatterns
		if analyzeRows > 0 {
			limit := analyzeRows
			criteria.RowsLimit = &limit
		}

		tables, err := AnalyzeSheets(o.Spreadsheet, hasHeader, criteria, presets)
		if err != nil {
			return nil, err
		}
		result[i] = tables

		if unionByName {
			continue
		}
		if reference == nil {
			reference = tables
			continue
		}
		if err := checkPositionalColumns(o.Spreadsheet.Name(), reference, tables); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// checkPositionalColumns compares tables against reference position by
// position, returning ColumnTypeMismatchError on the first sheet/column
// whose inferred Kind disagrees. A file with more sheets or columns than the
// reference is not itself an error -- only a disagreement at a position both
// sides declare is fatal.
func checkPositionalColumns(file string, reference, tables []Table) error {
	for i, table := range tables {
		if i >= len(reference) {
			return nil
		}
		ref := reference[i]
		for c, column := range table.Columns {
			if c >= len(ref.Columns) {
				break
			}
			if column.Kind != ref.Columns[c].Kind {
				return &ColumnTypeMismatchError{
					File: file, Sheet: table.Name, Column: column.Name,
					Expected: ref.Columns[c].Kind, Actual: column.Kind,
				}
			}
		}
	}
	return nil
}
