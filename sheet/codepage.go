package sheet

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// codepageEncodings maps a BIFF8 CODEPAGE record's codepage number to the
// single-byte encoding it names, for decoding compressed (1-byte-per-char)
// strings. Unicode codepages (1200, 1201) carry no single-byte mapping --
// compressed strings never occur under them -- so they are left unmapped.
var codepageEncodings = map[uint16]encoding.Encoding{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	855:   charmap.CodePage855,
	860:   charmap.CodePage860,
	862:   charmap.CodePage862,
	863:   charmap.CodePage863,
	865:   charmap.CodePage865,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	10007: charmap.MacintoshCyrillic,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28597: charmap.ISO8859_7,
	32768: charmap.Macintosh,
	32769: charmap.Windows1252,
}

// codepageEncoding looks up the single-byte encoding for a codepage number,
// reporting ok=false for an unrecognized or Unicode codepage.
func codepageEncoding(codepage uint16) (encoding.Encoding, bool) {
	enc, ok := codepageEncodings[codepage]
	return enc, ok
}
