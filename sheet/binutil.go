package sheet

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// u16At reads a little-endian uint16 at the given offset.
func u16At(b []byte, at int) uint16 {
	return binary.LittleEndian.Uint16(b[at : at+2])
}

// u32At reads a little-endian uint32 at the given offset.
func u32At(b []byte, at int) uint32 {
	return binary.LittleEndian.Uint32(b[at : at+4])
}

// u64At reads a little-endian uint64 at the given offset.
func u64At(b []byte, at int) uint64 {
	return binary.LittleEndian.Uint64(b[at : at+8])
}

// i32At reads a little-endian int32 at the given offset.
func i32At(b []byte, at int) int32 {
	return int32(u32At(b, at))
}

// f64At reads a little-endian IEEE-754 float64 at the given offset.
func f64At(b []byte, at int) float64 {
	return math.Float64frombits(u64At(b, at))
}

// styleAt reads a 3-byte, zero-padded little-endian style/xf index, the
// shape BIFF12 records use for their style field.
func styleAt(b []byte, at int) int {
	return int(b[at]) | int(b[at+1])<<8 | int(b[at+2])<<16
}

// u32Iter decodes a byte slice into a sequence of little-endian uint32
// sector indices, four bytes at a time.
func u32Iter(b []byte) []uint32 {
	out := make([]uint32, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, u32At(b, i))
	}
	return out
}

// decodeUTF16LE decodes a little-endian UTF-16 byte slice into a string,
// ignoring an odd trailing byte and stopping at the first NUL code unit.
func decodeUTF16LE(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = u16At(b, i*2)
	}
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}
