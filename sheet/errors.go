package sheet

import "fmt"

// UnsupportedFormatError is returned when a file extension does not map to
// any known spreadsheet container format.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("spreadsheet %q: unsupported format", e.Path)
}

// PasswordProtectedError is returned when a workbook is encrypted.
type PasswordProtectedError struct {
	Path string
}

func (e *PasswordProtectedError) Error() string {
	return fmt.Sprintf("spreadsheet %q: password protected", e.Path)
}

// EmptyWorkbookError is returned when a workbook contains no sheets.
type EmptyWorkbookError struct {
	Path string
}

func (e *EmptyWorkbookError) Error() string {
	return fmt.Sprintf("spreadsheet %q: empty", e.Path)
}

// MissingContainerPartError is returned when a required ZIP/CFB member is
// absent from the container.
type MissingContainerPartError struct {
	Part string
}

func (e *MissingContainerPartError) Error() string {
	return fmt.Sprintf("file %q is missing or corrupted", e.Part)
}

// CorruptContainerError wraps a structural failure while parsing a
// container (CFB, ZIP, or a record stream within one).
type CorruptContainerError struct {
	Reason string
}

func (e *CorruptContainerError) Error() string {
	return e.Reason
}

// CellValueError is raised when a cell cannot be coerced to its declared
// column type, or when an Error cell is encountered with error_as_null
// disabled.
type CellValueError struct {
	File      string
	Sheet     string
	Reference string
	Message   string
}

func (e *CellValueError) Error() string {
	return fmt.Sprintf("cell '[%s]%s!%s': %s", e.File, e.Sheet, e.Reference, e.Message)
}

// ColumnTypeMismatchError is raised in multi-file positional-union mode
// when two files disagree on a column's inferred type.
type ColumnTypeMismatchError struct {
	File     string
	Sheet    string
	Column   string
	Expected ColumnType
	Actual   ColumnType
}

func (e *ColumnTypeMismatchError) Error() string {
	return fmt.Sprintf("file %q sheet %q column %q: expected %s, got %s",
		e.File, e.Sheet, e.Column, e.Expected, e.Actual)
}

// SheetNotMatchedError is raised when a sheet-name glob matches nothing in
// a given file.
type SheetNotMatchedError struct {
	File    string
	Pattern string
}

func (e *SheetNotMatchedError) Error() string {
	return fmt.Sprintf("file %q: no sheet matched pattern %q", e.File, e.Pattern)
}

// NoFilesMatchedError is raised when a file glob matches nothing.
type NoFilesMatchedError struct {
	Pattern string
}

func (e *NoFilesMatchedError) Error() string {
	return fmt.Sprintf("no files matched pattern %q", e.Pattern)
}

// NoSheetsMatchedError is raised when, across every file considered, no
// sheet matched any selection criteria.
type NoSheetsMatchedError struct{}

func (e *NoSheetsMatchedError) Error() string {
	return "no sheets matched"
}

// InvalidParameterError is raised on malformed range/column-type/glob
// parameters supplied by the caller.
type InvalidParameterError struct {
	Name   string
	Detail string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Name, e.Detail)
}

// withPrefix prepends a contextual message to an error, mirroring the
// teacher's fmt.Errorf("...: %w", err) wrapping idiom used throughout
// compdoc.go and book.go.
func withPrefix(prefix string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
