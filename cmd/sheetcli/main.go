package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustysheet/sheetcore/sheet"
)

var version = "dev"

type quotingMode int

const (
	quotingNone quotingMode = iota
	quotingMinimal
	quotingNonNumeric
	quotingAll
)

func parseQuoting(value string) (quotingMode, error) {
	switch strings.ToLower(value) {
	case "none":
		return quotingNone, nil
	case "minimal":
		return quotingMinimal, nil
	case "nonnumeric":
		return quotingNonNumeric, nil
	case "all":
		return quotingAll, nil
	default:
		return quotingMinimal, fmt.Errorf("unsupported quoting: %s", value)
	}
}

type field struct {
	text      string
	isNumeric bool
}

// csvWriter renders rows of fields as delimited, optionally-quoted text;
// every subcommand here ultimately emits the same flat tabular shape
// through it.
type csvWriter struct {
	w         *bufio.Writer
	delimiter rune
	quoting   quotingMode
}

func (cw *csvWriter) writeRow(fields []field) error {
	for i, f := range fields {
		if i > 0 {
			cw.w.WriteRune(cw.delimiter)
		}
		cw.w.WriteString(cw.formatField(f))
	}
	cw.w.WriteByte('\n')
	return cw.w.Flush()
}

func (cw *csvWriter) formatField(f field) string {
	if !cw.needsQuote(f) {
		return f.text
	}
	escaped := strings.ReplaceAll(f.text, `"`, `""`)
	return `"` + escaped + `"`
}

func (cw *csvWriter) needsQuote(f field) bool {
	switch cw.quoting {
	case quotingAll:
		return true
	case quotingNonNumeric:
		return !f.isNumeric
	case quotingMinimal:
		return strings.ContainsRune(f.text, cw.delimiter) || strings.ContainsAny(f.text, "\"\r\n")
	default:
		return false
	}
}

// commonFlags is the selection/criteria surface shared by "analyze" and
// "read", mirroring the option table in the spec's External Interfaces
// section as cobra flags instead of config-object keys.
type commonFlags struct {
	sheetPattern  string
	sheets        []string
	rangeStr      string
	hasHeader     bool
	columns       []string
	analyzeRows   int
	nulls         []string
	errorAsNull   bool
	skipEmptyRows bool
	endAtEmptyRow bool
	unionByName   bool
	delimiter     string
	quoting       string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sheetPattern, "sheet", "", "glob over sheet names, empty selects all")
	cmd.Flags().StringSliceVar(&f.sheets, "sheets", nil, `per-file sheet glob, "file_glob=sheet_glob" (repeatable)`)
	cmd.Flags().StringVar(&f.rangeStr, "range", "", "Excel-style range, e.g. A1:C10")
	cmd.Flags().BoolVar(&f.hasHeader, "header", true, "treat the first row in range as column headers")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "name_glob=type_alias column type overrides (repeatable)")
	cmd.Flags().IntVar(&f.analyzeRows, "analyze-rows", 10, "sample size for type inference, 0 for unlimited")
	cmd.Flags().StringSliceVar(&f.nulls, "nulls", []string{""}, "values treated as null")
	cmd.Flags().BoolVar(&f.errorAsNull, "error-as-null", false, "demote error cells to null instead of failing")
	cmd.Flags().BoolVar(&f.skipEmptyRows, "skip-empty-rows", false, "omit empty rows between data regions")
	cmd.Flags().BoolVar(&f.endAtEmptyRow, "end-at-empty-row", false, "stop at the first fully empty row")
	cmd.Flags().BoolVar(&f.unionByName, "union-by-name", false, "union multi-file columns by name instead of position")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", "output field delimiter")
	cmd.Flags().StringVar(&f.quoting, "quoting", "minimal", "field quoting: none, minimal, nonnumeric, all")
}

func (f *commonFlags) criteria() (sheet.Criteria, error) {
	criteria := sheet.Criteria{
		ErrorAsNull:   f.errorAsNull,
		SkipEmptyRows: f.skipEmptyRows,
		EndAtEmptyRow: f.endAtEmptyRow,
	}
	if f.rangeStr != "" {
		rng, err := sheet.ParseRange(f.rangeStr)
		if err != nil {
			return criteria, err
		}
		criteria.Range = &rng
	}
	if len(f.nulls) > 0 {
		criteria.Nulls = make(map[string]struct{}, len(f.nulls))
		for _, n := range f.nulls {
			criteria.Nulls[n] = struct{}{}
		}
	}
	return criteria, nil
}

// patterns builds the file/sheet glob pairs OpenAll validates, from "--sheet"
// (a single glob applying to every file) and "--sheets" entries (each either
// "file_glob=sheet_glob" or a bare sheet glob applying to every file).
func (f *commonFlags) patterns() []sheet.FileSheetPatterns {
	var specs []string
	if f.sheetPattern != "" {
		specs = append(specs, f.sheetPattern)
	}
	specs = append(specs, f.sheets...)
	if len(specs) == 0 {
		return nil
	}
	patterns := make([]sheet.FileSheetPatterns, 0, len(specs))
	for _, spec := range specs {
		if idx := strings.IndexByte(spec, '='); idx >= 0 {
			patterns = append(patterns, sheet.FileSheetPatterns{FilePattern: spec[:idx], SheetPattern: spec[idx+1:]})
		} else {
			patterns = append(patterns, sheet.FileSheetPatterns{SheetPattern: spec})
		}
	}
	return patterns
}

// parseColumnPresets parses "--columns" entries ("name_glob=type_alias")
// into the ColumnPreset list AnalyzeSheets/AnalyzeAll apply as a final
// override over inferred column kinds.
func parseColumnPresets(specs []string) ([]sheet.ColumnPreset, error) {
	presets := make([]sheet.ColumnPreset, 0, len(specs))
	for _, spec := range specs {
		idx := strings.IndexByte(spec, '=')
		if idx <= 0 {
			return nil, &sheet.InvalidParameterError{Name: "columns", Detail: "expected name_glob=type, got '" + spec + "'"}
		}
		kind, err := sheet.ParseColumnType(spec[idx+1:])
		if err != nil {
			return nil, err
		}
		presets = append(presets, sheet.ColumnPreset{Pattern: spec[:idx], Kind: kind})
	}
	return presets, nil
}

func (f *commonFlags) newWriter(w *bufio.Writer) (*csvWriter, error) {
	quoting, err := parseQuoting(f.quoting)
	if err != nil {
		return nil, err
	}
	delimiter := ','
	if f.delimiter != "" {
		delimiter = []rune(f.delimiter)[0]
	}
	return &csvWriter{w: w, delimiter: delimiter, quoting: quoting}, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "sheetcli",
		Short:   "Analyze and read spreadsheets via the sheetcore ingestion library",
		Version: version,
	}
	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newReadCommand())
	root.AddCommand(newInspectCommand())
	return root
}

func newAnalyzeCommand() *cobra.Command {
	flags := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Print each sheet's inferred column names and types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := flags.criteria()
			if err != nil {
				return err
			}
			presets, err := parseColumnPresets(flags.columns)
			if err != nil {
				return err
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			writer, err := flags.newWriter(out)
			if err != nil {
				return err
			}
			return runAnalyze(args, flags.hasHeader, criteria, flags.patterns(), flags.analyzeRows, flags.unionByName, presets, writer)
		},
	}
	flags.register(cmd)
	return cmd
}

func runAnalyze(files []string, hasHeader bool, criteria sheet.Criteria, patterns []sheet.FileSheetPatterns, analyzeRows int, unionByName bool, presets []sheet.ColumnPreset, writer *csvWriter) error {
	if err := writer.writeRow([]field{
		{text: "file_name"}, {text: "sheet_name"}, {text: "column_name"}, {text: "column_type"},
	}); err != nil {
		return err
	}

	opened, err := sheet.OpenAll(files, patterns)
	if err != nil {
		return err
	}
	tables, err := sheet.AnalyzeAll(opened, hasHeader, analyzeRows, unionByName, criteria, presets)
	if err != nil {
		return err
	}

	for i, o := range opened {
		for _, table := range tables[i] {
			for _, column := range table.Columns {
				row := []field{
					{text: o.Spreadsheet.Name()},
					{text: table.Name},
					{text: column.Name},
					{text: column.Kind.String()},
				}
				if err := writer.writeRow(row); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func newReadCommand() *cobra.Command {
	flags := &commonFlags{}
	var fileNameColumn, sheetNameColumn string
	cmd := &cobra.Command{
		Use:   "read [files...]",
		Short: "Dump every in-range cell of each sheet as CSV",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := flags.criteria()
			if err != nil {
				return err
			}
			presets, err := parseColumnPresets(flags.columns)
			if err != nil {
				return err
			}
			out := bufio.NewWriter(cmd.OutOrStdout())
			writer, err := flags.newWriter(out)
			if err != nil {
				return err
			}
			return runRead(args, flags.hasHeader, criteria, flags.patterns(), flags.analyzeRows, flags.unionByName, presets, fileNameColumn, sheetNameColumn, writer)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&fileNameColumn, "file-name-column", "", "append a synthetic column carrying the source file name")
	cmd.Flags().StringVar(&sheetNameColumn, "sheet-name-column", "", "append a synthetic column carrying the source sheet name")
	return cmd
}

func newInspectCommand() *cobra.Command {
	var sheetPattern string
	cmd := &cobra.Command{
		Use:   "inspect [files...]",
		Short: "List the sheets each file contains, without reading their data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := bufio.NewWriter(cmd.OutOrStdout())
			writer := &csvWriter{w: out, delimiter: ',', quoting: quotingMinimal}
			criteria := sheet.Criteria{}
			if sheetPattern != "" {
				criteria.SheetNamePatterns = []string{sheetPattern}
			}
			zero := 0
			criteria.RowsLimit = &zero
			return runInspect(args, criteria, writer)
		},
	}
	cmd.Flags().StringVar(&sheetPattern, "sheet", "", "glob over sheet names, empty selects all")
	return cmd
}

func runInspect(files []string, criteria sheet.Criteria, writer *csvWriter) error {
	if err := writer.writeRow([]field{{text: "file_name"}, {text: "sheet_name"}}); err != nil {
		return err
	}
	for _, path := range files {
		spreadsheet, err := sheet.OpenSpreadsheet(path)
		if err != nil {
			return err
		}
		sheets, err := spreadsheet.ReadSheets(criteria)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, sh := range sheets {
			if err := writer.writeRow([]field{{text: path}, {text: sh.Name}}); err != nil {
				return err
			}
		}
	}
	return nil
}

// runRead dumps every in-range cell of every selected sheet as CSV,
// validating each data cell against its column's inferred/declared type via
// Cell.Coerce and raising a CellValueError (or, with --error-as-null, a
// blank field) on the first cell that does not fit. The header row (when
// --header is set) is emitted as display text without coercion, since its
// cells are column names, not data.
func runRead(files []string, hasHeader bool, criteria sheet.Criteria, patterns []sheet.FileSheetPatterns, analyzeRows int, unionByName bool, presets []sheet.ColumnPreset, fileNameColumn, sheetNameColumn string, writer *csvWriter) error {
	opened, err := sheet.OpenAll(files, patterns)
	if err != nil {
		return err
	}
	tables, err := sheet.AnalyzeAll(opened, hasHeader, analyzeRows, unionByName, criteria, presets)
	if err != nil {
		return err
	}

	var unionNames []string
	unionIndex := make(map[string]int)
	if unionByName {
		for _, fileTables := range tables {
			for _, table := range fileTables {
				for _, col := range table.Columns {
					if _, ok := unionIndex[col.Name]; !ok {
						unionIndex[col.Name] = len(unionNames)
						unionNames = append(unionNames, col.Name)
					}
				}
			}
		}
	}

	for i, o := range opened {
		readCriteria := criteria
		readCriteria.SheetNamePatterns = o.SheetNamePatterns

		sheets, err := o.Spreadsheet.ReadSheets(readCriteria)
		if err != nil {
			return fmt.Errorf("%s: %w", o.Spreadsheet.Name(), err)
		}

		sharedIndexes := make(map[int]struct{})
		for _, sh := range sheets {
			for _, cell := range sh.Cells {
				if cell.Kind == sheet.SharedString {
					if id, err := strconv.Atoi(cell.Value); err == nil {
						sharedIndexes[id] = struct{}{}
					}
				}
			}
		}
		sharedStrings, mappings, err := o.Spreadsheet.LoadSharedStrings(sharedIndexes)
		if err != nil {
			return fmt.Errorf("%s: %w", o.Spreadsheet.Name(), err)
		}

		fileTables := tables[i]
		for si, sh := range sheets {
			var table sheet.Table
			if si < len(fileTables) {
				table = fileTables[si]
			}
			headerRow := -1
			if hasHeader && table.RowLowerBound != nil {
				headerRow = *table.RowLowerBound - 1
			}

			for chunkIndex := 0; chunkIndex < sh.ChunkCount(); chunkIndex++ {
				rowLower, _ := sh.ChunkRowRange(chunkIndex)
				for offset, row := range sh.Chunk(chunkIndex) {
					isHeader := rowLower+offset == headerRow

					var fields []field
					if unionByName {
						fields = make([]field, len(unionNames))
					} else {
						fields = make([]field, 0, len(row))
					}

					for colOffset, cell := range row {
						text, isNumeric, err := resolveCell(cell, table, colOffset, isHeader, criteria.ErrorAsNull, mappings, sharedStrings, o.Spreadsheet.Name(), sh.Name)
						if err != nil {
							return err
						}
						if unionByName {
							if colOffset < len(table.Columns) {
								if idx, ok := unionIndex[table.Columns[colOffset].Name]; ok {
									fields[idx] = field{text: text, isNumeric: isNumeric}
								}
							}
						} else {
							fields = append(fields, field{text: text, isNumeric: isNumeric})
						}
					}
					if fileNameColumn != "" {
						fields = append(fields, field{text: o.Spreadsheet.Name()})
					}
					if sheetNameColumn != "" {
						fields = append(fields, field{text: sh.Name})
					}
					if err := writer.writeRow(fields); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// resolveCell resolves a shared-string reference (if any), then either
// returns display text verbatim for a header-row cell or a column-index
// out of the known schema, or coerces the cell into its table column's
// declared kind -- returning a CellValueError (or, with errorAsNull, a
// blank value) when the cell's actual content cannot be parsed into it.
func resolveCell(cell *sheet.Cell, table sheet.Table, colIndex int, isHeaderRow, errorAsNull bool, mappings map[int]int, sharedStrings []string, fileName, sheetName string) (string, bool, error) {
	if cell == nil {
		return "", false, nil
	}
	resolved := *cell
	if resolved.Kind == sheet.SharedString {
		if id, err := strconv.Atoi(resolved.Value); err == nil {
			if index, ok := mappings[id]; ok {
				resolved = sheet.Cell{Row: resolved.Row, Col: resolved.Col, Kind: sheet.InlineString, Value: sharedStrings[index]}
			}
		}
	}

	if isHeaderRow || colIndex >= len(table.Columns) {
		return resolved.String(), resolved.Kind == sheet.Number, nil
	}

	kind := table.Columns[colIndex].Kind
	text, err := resolved.Coerce(kind)
	if err != nil {
		if errorAsNull {
			return "", false, nil
		}
		return "", false, &sheet.CellValueError{
			File: fileName, Sheet: sheetName, Reference: resolved.Reference(), Message: err.Error(),
		}
	}
	return text, kind == sheet.ColumnBigInt || kind == sheet.ColumnDouble, nil
}
