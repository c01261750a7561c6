package sheet

import (
	"bufio"
	"io"
	"unicode/utf16"
)

// biff12Reader walks a .xlsb record stream. Record tags and sizes are
// 7-bit-continuation varints rather than the fixed 2/4-byte header BIFF8
// uses, so each read grows a reusable buffer to the declared record size.
type biff12Reader struct {
	r      *bufio.Reader
	buffer []byte
}

func newBiff12Reader(r io.Reader) *biff12Reader {
	return &biff12Reader{
		r:      bufio.NewReader(r),
		buffer: make([]byte, 1024),
	}
}

// getStrAndBound decodes a length-prefixed UTF-16LE string field inside the
// buffer starting at byte offset at: a 4-byte character count followed by
// that many UTF-16 code units. It returns the decoded string and the
// offset immediately past it, for callers that chain fixed-offset fields
// after a variable-length string.
func (r *biff12Reader) getStrAndBound(at int) (string, int, error) {
	lowerBound := at + 4
	if lowerBound > len(r.buffer) {
		return "", 0, &CorruptContainerError{Reason: "xlsb record truncated before string length"}
	}
	size := r.getUsize(at)
	upperBound := lowerBound + size*2
	if upperBound > len(r.buffer) {
		return "", 0, &CorruptContainerError{Reason: "xlsb record truncated before string data"}
	}
	units := make([]uint16, size)
	for i := 0; i < size; i++ {
		units[i] = u16At(r.buffer, lowerBound+i*2)
	}
	return string(utf16.Decode(units)), upperBound, nil
}

func (r *biff12Reader) getStr(at int) (string, error) {
	s, _, err := r.getStrAndBound(at)
	return s, err
}

func (r *biff12Reader) getUsize(at int) int   { return int(u32At(r.buffer, at)) }
func (r *biff12Reader) getU16(at int) uint16  { return u16At(r.buffer, at) }
func (r *biff12Reader) getU32(at int) uint32  { return u32At(r.buffer, at) }
func (r *biff12Reader) getI32(at int) int32   { return i32At(r.buffer, at) }
func (r *biff12Reader) getF64(at int) float64 { return f64At(r.buffer, at) }
func (r *biff12Reader) getStyle(at int) int   { return styleAt(r.buffer, at) }

// read7BitContinuationInteger decodes a LEB128-style varint of up to limit
// bytes, each contributing 7 bits, with the high bit signalling another
// byte follows -- the scheme BIFF12 uses for both record tags (2 bytes)
// and record lengths (4 bytes).
func (r *biff12Reader) read7BitContinuationInteger(limit int) (int, error) {
	integer := 0
	var b [1]byte
	for index := 0; index < limit; index++ {
		if _, err := io.ReadFull(r.r, b[:]); err != nil {
			return 0, err
		}
		integer += int(b[0]&0x7F) << (7 * index)
		if b[0]&0x80 == 0 {
			break
		}
	}
	return integer, nil
}

// next returns the next record's tag only, discarding its payload into the
// shared buffer.
func (r *biff12Reader) next() (uint16, error) {
	kind, _, err := r.read()
	return kind, err
}

// read reads the next record's tag and payload. The payload is retained in
// r.buffer (growing it if needed) and addressed by the get* accessors.
func (r *biff12Reader) read() (uint16, int, error) {
	kind, err := r.read7BitContinuationInteger(2)
	if err != nil {
		return 0, 0, err
	}
	size, err := r.read7BitContinuationInteger(4)
	if err != nil {
		return 0, 0, err
	}
	if size > len(r.buffer) {
		r.buffer = make([]byte, size)
	}
	if _, err := io.ReadFull(r.r, r.buffer[:size]); err != nil {
		return 0, 0, err
	}
	return uint16(kind), size, nil
}

// skipRange pairs a starting record tag with the ending tag that closes it,
// for use with findWith when a target tag can also legitimately occur
// nested inside one of these bracketing ranges (e.g. inside a discarded
// future-record extension block).
type skipRange struct {
	beginning, ending uint16
}

// findWith scans forward for a record of kind target, skipping over any
// bracketed range whose beginning tag is seen first, and returns its
// payload size. A target tag seen while already inside a skip range is
// ignored until the matching ending tag closes it.
func (r *biff12Reader) findWith(target uint16, skips []skipRange) (int, error) {
	expected := target
	for {
		actual, size, err := r.read()
		if err != nil {
			return 0, err
		}
		switch {
		case actual == expected && expected == target:
			return size, nil
		case actual == expected:
			expected = target
		default:
			for _, s := range skips {
				if actual == s.beginning {
					expected = s.ending
					break
				}
			}
		}
	}
}

func (r *biff12Reader) find(target uint16) (int, error) {
	return r.findWith(target, nil)
}
