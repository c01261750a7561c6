package sheet

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// biffContinueRecord is the record kind (CONTINUE) that BIFF8 uses to
// coalesce an oversized string or cell across multiple records.
const biffContinueRecord = 0x003C

// biff8Reader walks a legacy .xls record stream. Records larger than the
// 8224-byte BIFF limit are split across CONTINUE records; next treats the
// whole run as one virtual buffer addressed by a (chunk index, chunk
// offset) cursor, matching the original reader's chunk-list design.
type biff8Reader struct {
	buffer   []byte
	pointer  int
	chunks   [][2]int // [start,end) byte ranges within buffer, one per record/continuation
	index    int      // which chunk the read cursor is in
	offset   int      // byte offset within that chunk
	encoding encoding.Encoding
}

func newBiff8Reader(data []byte) *biff8Reader {
	return &biff8Reader{
		buffer:   data,
		encoding: charmap.ISO8859_1,
	}
}

// setEncoding switches the codepage used to decode compressed (1-byte-per-
// character) strings, in response to a CODEPAGE record.
func (r *biff8Reader) setEncoding(enc encoding.Encoding) {
	r.encoding = enc
}

// next advances to the next record, returning its kind. It appends the
// record (and any CONTINUE records immediately following it) to chunks as
// a single logical run, so that subsequent reads can cross the BIFF
// continuation boundary transparently.
func (r *biff8Reader) next() (uint16, bool) {
	if r.pointer+4 > len(r.buffer) {
		return 0, false
	}
	kind := u16At(r.buffer, r.pointer)
	size := int(u16At(r.buffer, r.pointer+2))
	start := r.pointer + 4
	end := start + size
	if end > len(r.buffer) {
		end = len(r.buffer)
	}
	r.chunks = [][2]int{{start, end}}
	r.pointer = end
	r.index = 0
	r.offset = 0

	for r.pointer+4 <= len(r.buffer) {
		nextKind := u16At(r.buffer, r.pointer)
		if nextKind != biffContinueRecord {
			break
		}
		nextSize := int(u16At(r.buffer, r.pointer+2))
		nstart := r.pointer + 4
		nend := nstart + nextSize
		if nend > len(r.buffer) {
			nend = len(r.buffer)
		}
		r.chunks = append(r.chunks, [2]int{nstart, nend})
		r.pointer = nend
	}
	return kind, true
}

// goto_ resets the read cursor to the start of the current record's chunk
// run, as if no bytes had yet been consumed.
func (r *biff8Reader) goto_() {
	r.index = 0
	r.offset = 0
}

// seekTo moves the reader's underlying record pointer to an absolute byte
// offset, so the next call to next() starts reading records from there --
// used to jump to a worksheet's BOF record once its position has been
// recorded from a BOUND_SHEET8 record during the initial globals scan.
func (r *biff8Reader) seekTo(pos int) {
	r.pointer = pos
}

func (r *biff8Reader) remaining() int {
	total := 0
	for i := r.index; i < len(r.chunks); i++ {
		lo, hi := r.chunks[i][0], r.chunks[i][1]
		if i == r.index {
			lo += r.offset
		}
		if hi > lo {
			total += hi - lo
		}
	}
	return total
}

// read extracts up to length bytes starting at the cursor, walking across
// chunk boundaries (i.e. CONTINUE records) as needed, and advances the
// cursor past what it read.
func (r *biff8Reader) read(length int) []byte {
	out := make([]byte, 0, length)
	for length > 0 && r.index < len(r.chunks) {
		lo, hi := r.chunks[r.index][0]+r.offset, r.chunks[r.index][1]
		avail := hi - lo
		if avail <= 0 {
			r.index++
			r.offset = 0
			continue
		}
		take := length
		if take > avail {
			take = avail
		}
		out = append(out, r.buffer[lo:lo+take]...)
		r.offset += take
		length -= take
		if r.offset >= r.chunks[r.index][1]-r.chunks[r.index][0] {
			r.index++
			r.offset = 0
		}
	}
	return out
}

func (r *biff8Reader) skip(length int) {
	_ = r.read(length)
}

func (r *biff8Reader) readU8() uint8 {
	b := r.read(1)
	if len(b) < 1 {
		return 0
	}
	return b[0]
}

func (r *biff8Reader) readU16() uint16 {
	b := r.read(2)
	if len(b) < 2 {
		return 0
	}
	return u16At(b, 0)
}

func (r *biff8Reader) readU32() uint32 {
	b := r.read(4)
	if len(b) < 4 {
		return 0
	}
	return u32At(b, 0)
}

func (r *biff8Reader) readUsize() int {
	return int(r.readU32())
}

func (r *biff8Reader) readU64() uint64 {
	b := r.read(8)
	if len(b) < 8 {
		return 0
	}
	return u64At(b, 0)
}

func (r *biff8Reader) readF64() float64 {
	b := r.read(8)
	if len(b) < 8 {
		return 0
	}
	return f64At(b, 0)
}

// getU16At reads a uint16 at an absolute byte offset within the current
// chunk run, without moving the cursor. It is used for lookahead into a
// record (e.g. peeking a following cell's column index).
func (r *biff8Reader) getU16At(pos int) uint16 {
	remaining := pos
	for _, c := range r.chunks {
		lo, hi := c[0], c[1]
		n := hi - lo
		if remaining+2 <= n {
			return u16At(r.buffer, lo+remaining)
		}
		remaining -= n
	}
	return 0
}

// getU16Back reads a uint16 at the given distance back from the end of the
// chunk run, used to recover trailing fields (e.g. an RK array's last
// entry) without disturbing the forward cursor.
func (r *biff8Reader) getU16Back(distance int) uint16 {
	total := 0
	for _, c := range r.chunks {
		total += c[1] - c[0]
	}
	return r.getU16At(total - distance)
}

// readRKNumber decodes a 4-byte RK-encoded number (biff8.rs
// read_rk_number): bit 0 set means the value is a percentage (divide by
// 100), bit 1 set means the remaining 30 bits are an integer shifted left
// by 2, otherwise they are the upper 32 bits of an IEEE-754 double with the
// low 34 bits zeroed. It returns the canonical decimal text form.
func (r *biff8Reader) readRKNumber() string {
	raw := r.readU32()
	isPercent := raw&0x1 != 0
	isInt := raw&0x2 != 0

	var value float64
	if isInt {
		value = float64(int32(raw) >> 2)
	} else {
		bits := uint64(raw&0xFFFFFFFC) << 32
		value = math.Float64frombits(bits)
	}
	if isPercent {
		value /= 100
	}
	if isInt && !isPercent {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// readShortXLUnicodeString reads an XLUnicodeStringNoCch-shaped field whose
// character count is a single byte (used by e.g. BoundSheet8's sheet name).
func (r *biff8Reader) readShortXLUnicodeString() string {
	chars := int(r.readU8())
	var sb strings.Builder
	r.readStringInto(chars, false, &sb)
	return sb.String()
}

// readXLUnicodeString reads an XLUnicodeString field whose character count
// is a two-byte cch (used by e.g. SST string table entries without rich
// text/phonetic extension).
func (r *biff8Reader) readXLUnicodeString() string {
	chars := int(r.readU16())
	var sb strings.Builder
	r.readStringInto(chars, false, &sb)
	return sb.String()
}

// readXLUnicodeRichExtendedString reads a full XLUnicodeRichExtendedString
// (used by LabelSst/shared-string-table entries), looping across CONTINUE
// boundaries until the declared character count has been consumed -- each
// continuation re-reads its own flag byte per the BIFF8 spec.
func (r *biff8Reader) readXLUnicodeRichExtendedString() string {
	expected := int(r.readU16())
	var sb strings.Builder
	actual := 0
	for actual < expected {
		actual += r.readStringInto(expected-actual, true, &sb)
	}
	return sb.String()
}

// readStringInto decodes up to chars characters starting at the flag byte
// that precedes them, appending the decoded text to content and returning
// the number of characters actually consumed. Flag bit 0 selects
// uncompressed (2 bytes/char) vs. compressed (1 byte/char, decoded via the
// reader's current codepage); bit 3 (0x8) and bit 2 (0x4), meaningful only
// when isExtend is set, introduce rich-run and phonetic trailers to skip.
func (r *biff8Reader) readStringInto(chars int, isExtend bool, content *strings.Builder) int {
	flag := r.readU8()
	highByte := flag&0x1 != 0
	richRun := isExtend && flag&0x8 != 0
	phonetic := isExtend && flag&0x4 != 0

	var richRunCount int
	var phoneticSize int
	if richRun {
		richRunCount = int(r.readU16())
	}
	if phonetic {
		phoneticSize = int(r.readU32())
	}

	if highByte {
		raw := r.read(2 * chars)
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = u16At(raw, i*2)
		}
		content.WriteString(string(utf16.Decode(units)))
	} else {
		raw := r.read(chars)
		decoded, err := r.encoding.NewDecoder().Bytes(raw)
		if err != nil {
			decoded = raw
		}
		content.Write(decoded)
	}

	if richRun {
		r.skip(4 * richRunCount)
	}
	if phonetic {
		r.skip(phoneticSize)
	}
	return chars
}
