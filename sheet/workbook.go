package sheet

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// sheetRef records one worksheet's display name and the zip-archive path of
// the part that holds its data, as discovered from the workbook part plus
// its relationships.
type sheetRef struct {
	name string
	path string
}

// openExcelContainer reads an OOXML/xlsb file fully into memory, rejects it
// if it is actually a CFB envelope wrapping an EncryptedPackage stream (how
// Office represents a password-protected zip-based workbook), and opens the
// remainder as a zip archive.
func openExcelContainer(fileName string) (*zipContainer, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return openExcelContainerBytes(fileName, data)
}

// openExcelContainerReader is the io.ReadSeeker analogue of
// openExcelContainer, for callers (e.g. a remote-fetched byte blob handed
// in as a bytes.Reader) that already hold the workbook in memory rather
// than as a path on the local filesystem.
func openExcelContainerReader(name string, r io.ReadSeeker) (*zipContainer, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return openExcelContainerBytes(name, data)
}

func openExcelContainerBytes(name string, data []byte) (*zipContainer, error) {
	if container, err := newCFB(bytes.NewReader(data)); err == nil && container.exists("EncryptedPackage") {
		return nil, &PasswordProtectedError{Path: name}
	}
	return openZipContainer(bytes.NewReader(data), int64(len(data)))
}

// loadNumberFormats resolves each referenced format index to the CellType it
// implies, preferring a custom format's classification, then the built-in
// format-id table, and falling back to a plain Number when neither
// recognizes the id.
func loadNumberFormats(formatIndexes []string, customFormats map[string]CellType, is1904 bool) []CellType {
	formats := make([]CellType, len(formatIndexes))
	for i, id := range formatIndexes {
		if kind, ok := customFormats[id]; ok {
			formats[i] = kind
			continue
		}
		if kind, ok := parseBuiltinNumberFormatID(id, is1904); ok {
			formats[i] = kind
			continue
		}
		formats[i] = Number
	}
	return formats
}

// toZipPath normalizes a relationship Target path to the path it names
// within an OOXML zip archive: a leading "/xl/" drops its slash, a bare
// "xl/"-rooted path is kept as-is, and anything else is assumed relative to
// "xl/".
func toZipPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/xl/"):
		return path[1:]
	case strings.HasPrefix(path, "xl/"):
		return path
	default:
		return "xl/" + path
	}
}
