package sheet

// Bounds beyond which an Excel serial number cannot represent a real
// Gregorian date (year 9999 rollover), ported from the teacher's
// xlrd/xldate.go xldaysTooLarge constants.
const (
	xldaysTooLarge1900 = 2958466
	xldaysTooLarge1904 = 2958466 - 1462
)

// validateExcelSerial reports whether serial is within the representable
// range for the given epoch: non-negative and below that epoch's
// xldaysTooLarge bound. Serials 1..60 of the 1900 epoch, which the
// teacher's XldateAsTuple rejects as ambiguous under the Lotus 1-2-3
// leap-year bug, are accepted here; coerce.go's excelEpochDays resolves
// them rather than treating them as invalid.
func validateExcelSerial(serial float64, is1904 bool) error {
	if serial < 0 {
		return &InvalidParameterError{Name: "date", Detail: "negative Excel serial date"}
	}
	bound := xldaysTooLarge1900
	if is1904 {
		bound = xldaysTooLarge1904
	}
	if int(serial) >= bound {
		return &InvalidParameterError{Name: "date", Detail: "Excel serial date too large"}
	}
	return nil
}
