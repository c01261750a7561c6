package sheet

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// zipContainer wraps a ZIP reader with name lookups that match the OOXML
// and ODS packaging conventions: case-insensitive, and tolerant of
// backslash path separators some writers emit for zip-entry names.
type zipContainer struct {
	archive *zip.Reader
}

func openZipContainer(r io.ReaderAt, size int64) (*zipContainer, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, withPrefix("opening container as zip", err)
	}
	return &zipContainer{archive: archive}, nil
}

// file opens a member of the archive by name, returning (nil, false, nil)
// if no entry matches.
func (z *zipContainer) file(name string) (io.ReadCloser, bool, error) {
	pattern := strings.ReplaceAll(name, "\\", "/")
	for _, f := range z.archive.File {
		if strings.EqualFold(pattern, strings.ReplaceAll(f.Name, "\\", "/")) {
			rc, err := f.Open()
			if err != nil {
				return nil, false, withPrefix("opening "+f.Name, err)
			}
			return rc, true, nil
		}
	}
	return nil, false, nil
}

// bytes reads a member of the archive fully into memory.
func (z *zipContainer) bytes(name string) ([]byte, bool, error) {
	rc, ok, err := z.file(name)
	if err != nil || !ok {
		return nil, ok, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, withPrefix("reading "+name, err)
	}
	return data, true, nil
}

// xmlDecoder opens a member of the archive and wraps it in an XML decoder,
// the Go analogue of the original's XmlReader-over-a-ZipFile composition.
func (z *zipContainer) xmlDecoder(name string) (*xml.Decoder, io.Closer, bool, error) {
	rc, ok, err := z.file(name)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	return xml.NewDecoder(rc), rc, true, nil
}

// biffReader opens a member of the archive and wraps it as a BIFF12 record
// stream, used for .xlsb worksheet/workbook parts.
func (z *zipContainer) biffReader(name string) (*biff12Reader, io.Closer, bool, error) {
	rc, ok, err := z.file(name)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	return newBiff12Reader(rc), rc, true, nil
}
