package dates

import (
	"fmt"
	"regexp"

	apperrors "brokerflow/internal/errors"
)

var (
	eightDigit = regexp.MustCompile(`\d{8}`)
	sixDigit   = regexp.MustCompile(`\d{6}`)
	allDigits  = regexp.MustCompile(`^\d+$`)
)

// Normalize converts a processing date to the canonical 8-digit
// YYYYMMDD form. 6-digit YYMMDD input maps to year 2000+YY.
func Normalize(date string) (string, error) {
	switch {
	case len(date) == 8 && allDigits.MatchString(date):
		return date, nil
	case len(date) == 6 && allDigits.MatchString(date):
		return "20" + date, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("invalid date %q, want YYYYMMDD or YYMMDD", date), nil)
}

// Alternate returns the 2-digit-year encoding of a canonical date, or
// "" when the date is not in the 2000s range the short form can carry.
func Alternate(canonical string) string {
	if len(canonical) == 8 && canonical[:2] == "20" {
		return canonical[2:]
	}
	return ""
}

// ExtractToken pulls the embedded date token out of a folder name and
// normalizes it: an 8-digit token wins over a 6-digit one. Returns ""
// when the name carries no date.
func ExtractToken(folderName string) string {
	if token := eightDigit.FindString(folderName); token != "" {
		return token
	}
	if token := sixDigit.FindString(folderName); token != "" {
		return "20" + token
	}
	return ""
}
