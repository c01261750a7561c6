package sheet

import "strings"

// ColumnType is the inferred or user-specified output type for a column of
// extracted cell data.
type ColumnType int

const (
	ColumnBoolean ColumnType = iota
	ColumnBigInt
	ColumnDouble
	ColumnVarchar
	ColumnTimestamp
	ColumnDate
	ColumnTime
)

func (t ColumnType) String() string {
	switch t {
	case ColumnBoolean:
		return "boolean"
	case ColumnBigInt:
		return "bigint"
	case ColumnDouble:
		return "double"
	case ColumnVarchar:
		return "varchar"
	case ColumnTimestamp:
		return "timestamp"
	case ColumnDate:
		return "date"
	case ColumnTime:
		return "time"
	default:
		return "unknown"
	}
}

// ParseColumnType parses a user-supplied type name (e.g. from a glob-based
// type preset) into a ColumnType, accepting the same common aliases the
// original accepted.
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToUpper(name) {
	case "BOOL", "BOOLEAN":
		return ColumnBoolean, nil
	case "INT", "BIGINT", "INTEGER":
		return ColumnBigInt, nil
	case "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC":
		return ColumnDouble, nil
	case "TEXT", "STRING", "VARCHAR":
		return ColumnVarchar, nil
	case "DATETIME", "TIMESTAMP":
		return ColumnTimestamp, nil
	case "DATE":
		return ColumnDate, nil
	case "TIME":
		return ColumnTime, nil
	default:
		return 0, &InvalidParameterError{Name: "column_type", Detail: "invalid column type '" + name + "'"}
	}
}

// columnTypeFromCell infers a candidate ColumnType from one cell's
// classified CellType and canonical value, or ok=false when the cell
// carries no type-bearing information (e.g. it is empty or an error).
func columnTypeFromCell(kind CellType, value string) (ColumnType, bool) {
	switch kind {
	case Boolean:
		return ColumnBoolean, true
	case Number:
		if isIntegerText(value) {
			return ColumnBigInt, true
		}
		return ColumnDouble, true
	case NumberDateTime1900, NumberDateTime1904:
		return ColumnTimestamp, true
	case NumberDate1900, NumberDate1904:
		return ColumnDate, true
	case NumberTime1900, NumberTime1904:
		return ColumnTime, true
	case IsoDateTime:
		switch {
		case strings.Contains(value, "1900-01-01"), strings.Contains(value, "1904-01-01"):
			return ColumnTime, true
		case strings.Contains(value, "00:00:00"):
			return ColumnDate, true
		case !strings.Contains(value, "T"):
			return ColumnDate, true
		default:
			return ColumnTimestamp, true
		}
	case IsoDuration:
		return ColumnTime, true
	case InlineString, SharedString:
		return ColumnVarchar, true
	default:
		return 0, false
	}
}

// isIntegerText reports whether a decimal-text numeric value has no
// fractional part worth keeping (an empty or all-zero decimal tail),
// deciding BigInt vs. Double for plain Number cells.
func isIntegerText(value string) bool {
	idx := strings.IndexByte(value, '.')
	if idx < 0 {
		return true
	}
	for _, ch := range value[idx+1:] {
		if ch != '0' {
			return false
		}
	}
	return true
}

// detectColumnType reduces a collection of candidate column types (one per
// cell examined) to the most specific type they all agree on, in
// precedence order Boolean > BigInt > Double > Date > Time > Timestamp,
// falling back to Varchar when the candidates disagree or none exist.
func detectColumnType(candidates []ColumnType) ColumnType {
	if len(candidates) == 0 {
		return ColumnVarchar
	}
	all := func(pred func(ColumnType) bool) bool {
		for _, t := range candidates {
			if !pred(t) {
				return false
			}
		}
		return true
	}
	switch {
	case all(func(t ColumnType) bool { return t == ColumnBoolean }):
		return ColumnBoolean
	case all(func(t ColumnType) bool { return t == ColumnBigInt }):
		return ColumnBigInt
	case all(func(t ColumnType) bool { return t == ColumnBigInt || t == ColumnDouble }):
		return ColumnDouble
	case all(func(t ColumnType) bool { return t == ColumnDate }):
		return ColumnDate
	case all(func(t ColumnType) bool { return t == ColumnTime }):
		return ColumnTime
	case all(func(t ColumnType) bool { return t == ColumnTimestamp || t == ColumnDate || t == ColumnTime }):
		return ColumnTimestamp
	default:
		return ColumnVarchar
	}
}

// Column is one output column of a Table: its header name and its
// (inferred or overridden) type.
type Column struct {
	Name string
	Kind ColumnType
}
