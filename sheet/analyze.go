package sheet

import (
	"path/filepath"
	"strconv"
)

// ColumnPreset forces a column whose inferred header name matches Pattern
// (path/filepath.Match glob syntax) to Kind, overriding whatever type
// AnalyzeSheets would otherwise have detected for it.
type ColumnPreset struct {
	Pattern string
	Kind    ColumnType
}

func matchPreset(presets []ColumnPreset, name string) (ColumnType, bool) {
	for _, preset := range presets {
		if ok, _ := filepath.Match(preset.Pattern, name); ok {
			return preset.Kind, true
		}
	}
	return 0, false
}

// sheetAnalysis accumulates one sheet's header cells, per-column candidate
// types, and extent while every sheet from a file is scanned, before shared
// strings are resolved and the final Table values are built.
type sheetAnalysis struct {
	name          string
	header        []*Cell
	kinds         []ColumnType
	rowLowerBound *int
	colLowerBound int
	colUpperBound int
}

// AnalyzeSheets reads every sheet a Spreadsheet's criteria select and
// reduces each to a Table: a header row (when hasHeader is set) used for
// column names, and a detected ColumnType per column based on every other
// cell's classification, with presets applied as a final override.
//
// Shared strings referenced by cells collected along the way are resolved
// in one batched LoadSharedStrings call once every sheet has been scanned,
// so a header cell that happens to be a shared string still resolves to
// its text.
func AnalyzeSheets(s Spreadsheet, hasHeader bool, criteria Criteria, presets []ColumnPreset) ([]Table, error) {
	sheets, err := s.ReadSheets(criteria)
	if err != nil {
		return nil, err
	}

	sharedIndexes := make(map[int]struct{})
	var analyses []sheetAnalysis

	for _, sheet := range sheets {
		rowLowerBound := firstNonNil(boundFromRange(criteria.Range, rangeRowLower), sheet.RowLowerBound)
		colLowerBound := firstNonNil(boundFromRange(criteria.Range, rangeColLower), sheet.ColLowerBound)
		colUpperBound := firstNonNil(boundFromRange(criteria.Range, rangeColUpper), sheet.ColUpperBound)

		if (hasHeader && sheet.IsEmpty()) || (!hasHeader && (colLowerBound == nil || colUpperBound == nil)) {
			continue
		}

		width := *colUpperBound - *colLowerBound + 1
		header := make([]*Cell, width)
		data := make([][]Cell, width)

		for _, cell := range sheet.Cells {
			if cell.Kind == SharedString {
				if id, err := strconv.Atoi(cell.Value); err == nil {
					sharedIndexes[id] = struct{}{}
				}
			}
			index := cell.Col - *colLowerBound
			if hasHeader && rowLowerBound != nil && *rowLowerBound == cell.Row {
				c := cell
				header[index] = &c
			} else {
				data[index] = append(data[index], cell)
			}
		}

		kinds := make([]ColumnType, width)
		for i := range kinds {
			var candidates []ColumnType
			for _, cell := range data[i] {
				if kind, ok := columnTypeFromCell(cell.Kind, cell.Value); ok {
					candidates = append(candidates, kind)
				}
			}
			kinds[i] = detectColumnType(candidates)
		}

		var tableRowLowerBound *int
		if rowLowerBound != nil {
			r := *rowLowerBound
			if hasHeader {
				r++
			}
			tableRowLowerBound = &r
		}

		analyses = append(analyses, sheetAnalysis{
			name:          sheet.Name,
			header:        header,
			kinds:         kinds,
			rowLowerBound: tableRowLowerBound,
			colLowerBound: *colLowerBound,
			colUpperBound: *colUpperBound,
		})
	}

	sharedStrings, mappings, err := s.LoadSharedStrings(sharedIndexes)
	if err != nil {
		return nil, err
	}

	var tables []Table
	for _, a := range analyses {
		names := make([]string, len(a.header))
		for i, cell := range a.header {
			col := a.colLowerBound + i
			if cell == nil {
				names[i] = colname(col)
				continue
			}
			value := cell.String()
			if cell.Kind == SharedString {
				if id, err := strconv.Atoi(cell.Value); err == nil {
					if index, ok := mappings[id]; ok {
						value = sharedStrings[index]
					}
				}
			}
			if _, isNull := criteria.Nulls[value]; !isNull {
				names[i] = value
			} else {
				names[i] = colname(col)
			}
		}

		columns := make([]Column, len(names))
		for i, name := range names {
			kind := a.kinds[i]
			if preset, ok := matchPreset(presets, name); ok {
				kind = preset
			}
			columns[i] = Column{Name: name, Kind: kind}
		}

		tables = append(tables, Table{
			Name:          a.name,
			Columns:       columns,
			RowLowerBound: a.rowLowerBound,
			ColLowerBound: a.colLowerBound,
			ColUpperBound: a.colUpperBound,
		})
	}
	return tables, nil
}

type rangeBoundKind int

const (
	rangeRowLower rangeBoundKind = iota
	rangeColLower
	rangeColUpper
)

func boundFromRange(r *Range, kind rangeBoundKind) *int {
	if r == nil {
		return nil
	}
	switch kind {
	case rangeRowLower:
		return r.RowLowerBound
	case rangeColLower:
		return r.ColLowerBound
	case rangeColUpper:
		return r.ColUpperBound
	default:
		return nil
	}
}

func firstNonNil(a, b *int) *int {
	if a != nil {
		return a
	}
	return b
}
