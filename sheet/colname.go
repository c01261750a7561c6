package sheet

import "strconv"

// colname converts a 0-based column index to its Excel letter form
// (0 -> "A", 25 -> "Z", 26 -> "AA"), following the same base-26,
// no-zero-digit scheme as the teacher's Colname in book.go.
func colname(colx int) string {
	if colx < 0 {
		return ""
	}
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	name := ""
	for {
		quot := colx / 26
		rem := colx % 26
		name = string(alphabet[rem]) + name
		if quot == 0 {
			break
		}
		colx = quot - 1
	}
	return name
}

// indexToReference formats a 0-based (row, col) pair as an Excel cell
// reference, e.g. (0, 1) -> "B1".
func indexToReference(row, col int) string {
	return colname(col) + strconv.Itoa(row+1)
}

// referenceToIndex parses an Excel cell reference (e.g. "B7") into its
// 0-based (row, col) pair, reporting ok=false for anything that doesn't
// match the LETTERS+DIGITS shape.
func referenceToIndex(reference string) (row, col int, ok bool) {
	i := 0
	for i < len(reference) && reference[i] >= 'A' && reference[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(reference) {
		return 0, 0, false
	}
	letters, digits := reference[:i], reference[i:]
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return 0, 0, false
		}
	}
	colIdx := 0
	for _, ch := range letters {
		colIdx = colIdx*26 + int(ch-'A') + 1
	}
	rowNum, err := strconv.Atoi(digits)
	if err != nil || rowNum == 0 {
		return 0, 0, false
	}
	return rowNum - 1, colIdx - 1, true
}
