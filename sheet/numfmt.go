package sheet

import (
	"strings"

	"github.com/xuri/nfp"
)

// classifyCustomNumberFormat determines the date/time CellType a custom
// number-format code string implies. Unlike a raw character scan, it
// tokenizes the format with nfp.NumberFormatParser first, which already
// strips quoted literals, escape sequences, and bracketed color/condition
// sections -- so only tokens nfp itself classifies as date/time or elapsed
// date/time tokens are considered, instead of re-deriving that exclusion
// by hand.
func classifyCustomNumberFormat(format string, is1904 bool) CellType {
	sections := nfp.NumberFormatParser().Parse(format)

	var isDate, isTime bool
	for _, sec := range sections {
		for _, tok := range sec.Items {
			switch tok.TType {
			case nfp.TokenTypeDateTimes:
				switch strings.ToUpper(tok.TValue)[0] {
				case 'Y', 'D':
					isDate = true
				case 'H', 'S':
					isTime = true
				}
			case nfp.TokenTypeElapsedDateTimes:
				isTime = true
			}
		}
	}

	switch {
	case isDate && isTime:
		if is1904 {
			return NumberDateTime1904
		}
		return NumberDateTime1900
	case isDate:
		if is1904 {
			return NumberDate1904
		}
		return NumberDate1900
	case isTime:
		if is1904 {
			return NumberTime1904
		}
		return NumberTime1900
	default:
		return Number
	}
}
