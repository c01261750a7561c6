package sheet

import (
	"regexp"
	"strconv"
	"strings"
)

// Range is an Excel-style cell range with independently optional row/column
// bounds, e.g. "A1" (a single cell onward), "B2:D", or "1:10" (whole rows).
// A nil bound is unbounded in that direction.
type Range struct {
	RowLowerBound *int
	RowUpperBound *int
	ColLowerBound *int
	ColUpperBound *int
}

var rangePattern = regexp.MustCompile(`^([A-Z]*)(\d*)(:([A-Z]*)(\d*))?$`)

// ParseRange parses an Excel-style range string such as "A1", "B2:C5", "A",
// or "1:10" into a Range. An empty string yields an unbounded Range.
func ParseRange(value string) (Range, error) {
	upper := strings.ToUpper(value)
	m := rangePattern.FindStringSubmatch(upper)
	if m == nil {
		return Range{}, &InvalidParameterError{Name: "range", Detail: "invalid range format '" + value + "'"}
	}
	return Range{
		ColLowerBound: colToIndex(m[1]),
		RowLowerBound: rowToIndex(m[2]),
		ColUpperBound: colToIndex(m[4]),
		RowUpperBound: rowToIndex(m[5]),
	}, nil
}

// colToIndex converts an Excel column-letter string to a 0-based index, or
// nil if the string is empty.
func colToIndex(letters string) *int {
	if letters == "" {
		return nil
	}
	index := 0
	for _, ch := range letters {
		index = index*26 + int(ch-'A') + 1
	}
	index--
	return &index
}

// rowToIndex converts a 1-based row-number string to a 0-based index, or
// nil if the string is empty.
func rowToIndex(digits string) *int {
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return nil
	}
	n--
	return &n
}
