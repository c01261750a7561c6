package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// excelEpochDays converts an Excel serial day count (as a float, truncated)
// into days since the Unix epoch, applying the Lotus 1-2-3 leap-year bug
// correction for the 1900 epoch and a fixed 1460-day shift on top of the
// 1900 base for 1904.
func excelEpochDays(serial float64, is1904 bool) int64 {
	days := int64(serial) // trunc toward zero, matching the Rust `as i32` truncation
	if is1904 {
		return days - 25568 + 1460
	}
	if days >= 60 {
		return days - 25568 - 1
	}
	return days - 25568
}

// ToBoolean converts the cell's canonical value to a boolean: Excel/ODS
// store boolean TRUE as the text "1".
func (c Cell) ToBoolean() bool {
	return c.Value == "1"
}

// ToBigInt converts the cell's canonical value to an int64, parsing only
// its leading run of digits (and an optional leading '-'), matching how
// numeric-looking strings with trailing garbage are still accepted.
func (c Cell) ToBigInt() (int64, error) {
	end := len(c.Value)
	for i, r := range c.Value {
		if (r < '0' || r > '9') && !(r == '-' && i == 0) {
			end = i
			break
		}
	}
	integer, err := strconv.ParseInt(c.Value[:end], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q to bigint failed", c.Value)
	}
	return integer, nil
}

// ToDouble converts the cell's canonical value to a float64.
func (c Cell) ToDouble() (float64, error) {
	v, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q to double failed", c.Value)
	}
	return v, nil
}

// ToDate converts the cell's canonical value to days since 1970-01-01,
// dispatching on its classified CellType.
func (c Cell) ToDate() (int64, error) {
	switch c.Kind {
	case NumberDateTime1900, NumberDate1900, NumberTime1900:
		serial, err := c.ToDouble()
		if err != nil {
			return 0, err
		}
		return excelEpochDays(serial, false), nil
	case NumberDateTime1904, NumberDate1904, NumberTime1904:
		serial, err := c.ToDouble()
		if err != nil {
			return 0, err
		}
		return excelEpochDays(serial, true), nil
	case IsoDateTime:
		t, err := time.Parse("2006-01-02", c.Value)
		if err != nil {
			return 0, fmt.Errorf("parse %q to date failed", c.Value)
		}
		return t.Unix() / 86400, nil
	case IsoDuration:
		return 0, nil // duration is only used for ods time-of-day values
	default:
		return 0, fmt.Errorf("parse %q to date failed", c.Value)
	}
}

// ToTime converts the cell's canonical value to microseconds since
// midnight.
func (c Cell) ToTime() (int64, error) {
	switch c.Kind {
	case NumberDateTime1900, NumberDateTime1904,
		NumberDate1900, NumberDate1904,
		NumberTime1900, NumberTime1904:
		// Only the fractional (time-of-day) part of the serial counts; the
		// whole-day part is dropped.
		serial, err := c.ToDouble()
		if err != nil {
			return 0, err
		}
		fraction := serial - float64(int64(serial))
		return roundInt64(fraction * 86_400_000_000), nil
	case IsoDateTime:
		t, err := parseIsoDateTime(c.Value)
		if err != nil {
			return 0, fmt.Errorf("parse %q to datetime failed", c.Value)
		}
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return t.Sub(midnight).Microseconds(), nil
	case IsoDuration:
		hour, minute, second, err := parseIsoDuration(c.Value)
		if err != nil {
			return 0, err
		}
		return (hour*3600 + minute*60 + second) * 1_000_000, nil
	default:
		return 0, fmt.Errorf("parse %q to time failed", c.Value)
	}
}

// ToDateTime converts the cell's canonical value to microseconds since
// 1970-01-01T00:00:00Z.
func (c Cell) ToDateTime() (int64, error) {
	switch c.Kind {
	case NumberDateTime1900, NumberDateTime1904,
		NumberDate1900, NumberDate1904,
		NumberTime1900, NumberTime1904:
		days, err := c.ToDate()
		if err != nil {
			return 0, err
		}
		serial, err := c.ToDouble()
		if err != nil {
			return 0, err
		}
		frac := serial - float64(int64(serial))
		return roundInt64((float64(days) + frac) * 86_400_000_000), nil
	case IsoDateTime:
		t, err := parseIsoDateTime(c.Value)
		if err != nil {
			return 0, fmt.Errorf("parse %q to datetime failed", c.Value)
		}
		return t.UnixMicro(), nil
	case IsoDuration:
		return c.ToTime()
	default:
		return 0, fmt.Errorf("parse %q to datetime failed", c.Value)
	}
}

// Coerce converts the cell's canonical value into kind, the column type a
// caller has inferred or declared, returning the canonical text a dataset
// output should carry for it. An error means the cell's actual value cannot
// be parsed into kind -- e.g. a Varchar cell landing in a BigInt column --
// for the caller to raise as a CellValueError with file/sheet/reference
// context it, not Cell, carries.
func (c Cell) Coerce(kind ColumnType) (string, error) {
	if c.Kind == Empty {
		return "", nil
	}
	switch kind {
	case ColumnBoolean:
		return strconv.FormatBool(c.ToBoolean()), nil
	case ColumnBigInt:
		v, err := c.ToBigInt()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case ColumnDouble:
		v, err := c.ToDouble()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case ColumnDate:
		days, err := c.ToDate()
		if err != nil {
			return "", err
		}
		return time.Unix(days*86400, 0).UTC().Format("2006-01-02"), nil
	case ColumnTime:
		micros, err := c.ToTime()
		if err != nil {
			return "", err
		}
		return formatMicrosAsTime(micros), nil
	case ColumnTimestamp:
		micros, err := c.ToDateTime()
		if err != nil {
			return "", err
		}
		return time.UnixMicro(micros).UTC().Format("2006-01-02 15:04:05"), nil
	default: // ColumnVarchar
		return c.String(), nil
	}
}

// formatMicrosAsTime renders a microseconds-since-midnight count as
// "HH:MM:SS" or, when a sub-second remainder exists, "HH:MM:SS.ffffff",
// matching numberToTimeString's precision rule for plain numeric times.
func formatMicrosAsTime(micros int64) string {
	totalSeconds := micros / 1_000_000
	fraction := micros % 1_000_000
	seconds := totalSeconds % 60
	totalSeconds /= 60
	minutes := totalSeconds % 60
	hours := totalSeconds / 60
	if fraction > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, fraction)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// displayString renders the cell's value the way Excel would display it:
// booleans as "true"/"false", date/time serials as ISO text, and
// everything else as-is.
func (c Cell) displayString() (string, error) {
	switch c.Kind {
	case Boolean:
		if c.Value == "1" {
			return "true", nil
		}
		return "false", nil
	case NumberDateTime1900:
		return numberToDateTimeString(c.Value, false)
	case NumberDate1900:
		return numberToDateString(c.Value, false)
	case NumberDateTime1904:
		return numberToDateTimeString(c.Value, true)
	case NumberDate1904:
		return numberToDateString(c.Value, true)
	case NumberTime1900, NumberTime1904:
		return numberToTimeString(c.Value)
	case IsoDateTime:
		return strings.Replace(c.Value, "T", " ", 1), nil
	case IsoDuration:
		s := c.Value
		s = strings.ReplaceAll(s, "PT", "")
		s = strings.ReplaceAll(s, "H", ":")
		s = strings.ReplaceAll(s, "M", ":")
		s = strings.ReplaceAll(s, "S", "")
		return s, nil
	default:
		return c.Value, nil
	}
}

// numberToDateString converts an Excel serial day number to an ISO date
// string ("2006-01-02"), applying the same Lotus 1-2-3 leap-year
// correction as excelEpochDays but rooted at the 1899-12-30 anchor date
// the original computes against directly.
func numberToDateString(value string, is1904 bool) (string, error) {
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", fmt.Errorf("parse %q to date failed", value)
	}
	days := int64(serial)
	var shift int64
	switch {
	case is1904:
		shift = 1462
	case days < 60:
		shift = 1
	default:
		shift = 0
	}
	anchor := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	date := anchor.AddDate(0, 0, int(days+shift))
	return date.Format("2006-01-02"), nil
}

// numberToTimeString converts an Excel fractional-day time number to an
// ISO time-of-day string, including microseconds (rendered from a
// millisecond-resolution remainder) when the fraction does not land on a
// whole second.
func numberToTimeString(value string) (string, error) {
	factor, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return "", fmt.Errorf("parse %q to time failed", value)
	}
	total := roundInt64(factor * 86_400_000)
	milliseconds := total % 1000
	total /= 1000
	seconds := total % 60
	total /= 60
	minutes := total % 60
	total /= 60
	hours := total
	if milliseconds > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%06d", hours, minutes, seconds, milliseconds*1000), nil
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), nil
}

// numberToDateTimeString combines numberToDateString and numberToTimeString
// for a serial that carries a fractional (time-of-day) component.
func numberToDateTimeString(value string, is1904 bool) (string, error) {
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		date, err := numberToDateString(value[:idx], is1904)
		if err != nil {
			return "", err
		}
		timeStr, err := numberToTimeString(value[idx:])
		if err != nil {
			return "", err
		}
		return date + " " + timeStr, nil
	}
	date, err := numberToDateString(value, is1904)
	if err != nil {
		return "", err
	}
	return date + " 00:00:00", nil
}

// parseIsoDateTime parses either an ISO date ("2006-01-02") or an ISO
// datetime ("2006-01-02T15:04:05[.fraction]"), matching how the column
// model accepts both shapes for an IsoDateTime cell.
func parseIsoDateTime(value string) (time.Time, error) {
	if strings.Contains(value, "T") {
		for _, layout := range []string{
			"2006-01-02T15:04:05.999999999",
			"2006-01-02T15:04:05",
		} {
			if t, err := time.Parse(layout, value); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("parse %q to datetime failed", value)
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseIsoDuration parses the "PT#H#M#S" subset of ISO-8601 durations that
// ODS uses to represent time-of-day cells.
func parseIsoDuration(value string) (hour, minute, second int64, err error) {
	s := strings.TrimPrefix(value, "PT")
	for len(s) > 0 {
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			i++
		}
		if i == 0 || i >= len(s) {
			return 0, 0, 0, fmt.Errorf("parse %q to iso8601 duration failed", value)
		}
		n, convErr := strconv.ParseFloat(s[:i], 64)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("parse %q to iso8601 duration failed", value)
		}
		switch s[i] {
		case 'H':
			hour = int64(n)
		case 'M':
			minute = int64(n)
		case 'S':
			second = int64(n)
		default:
			return 0, 0, 0, fmt.Errorf("parse %q to iso8601 duration failed", value)
		}
		s = s[i+1:]
	}
	return hour, minute, second, nil
}

func roundInt64(f float64) int64 {
	if f >= 0 {
		return int64(f + 0.5)
	}
	return int64(f - 0.5)
}
