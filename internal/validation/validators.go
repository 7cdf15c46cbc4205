// Package validation implements the field-level validators applied to
// every record. Validators are pure functions: they never mutate the
// record and hold no state, so chunks can be validated concurrently.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"dqpipe/pkg/contracts/domain"
)

// emailPattern matches a single local@domain.tld shape. The domain must
// contain at least one dot.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// phoneStrip removes the separators commonly found in phone numbers.
var phoneStrip = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// DefaultDateFormats is the ordered format set used when a date rule
// does not configure its own. First match wins.
var DefaultDateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
}

// currencyStrip removes currency symbols and thousands separators
// before numeric parsing.
var currencyStrip = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "")

// FieldResult is the outcome of applying one rule to one record.
type FieldResult struct {
	Column string
	OK     bool
	Reason domain.DropReason
	Raw    string
}

// ValidEmail reports whether the value looks like a deliverable email
// address after trimming and lowercasing.
func ValidEmail(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	return emailPattern.MatchString(value)
}

// ValidPhone reports whether the value is a phone number: digits only
// after stripping separators and an optional leading +, with 7 to 15
// digits inclusive.
func ValidPhone(value string) bool {
	value = phoneStrip.Replace(strings.TrimSpace(value))
	value = strings.TrimPrefix(value, "+")
	if len(value) < 7 || len(value) > 15 {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseDate parses the value against the ordered format set, first
// match wins. Out-of-range calendar dates fail every format.
func ParseDate(value string, formats []string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(formats) == 0 {
		formats = DefaultDateFormats
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumeric parses the value after stripping currency symbols and
// thousands separators. Non-finite values are rejected; negative values
// are rejected when nonNegative is set.
func ParseNumeric(value string, nonNegative bool) (float64, bool) {
	value = currencyStrip.Replace(strings.TrimSpace(value))
	if value == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, false
	}
	if nonNegative && num < 0 {
		return 0, false
	}
	return num, true
}

// DecodeValue makes validation encoding-tolerant: a value that is not
// valid UTF-8 is retried under Windows-1252 before being judged
// undecodable. Only failure after the fallback is reported.
func DecodeValue(value string) (string, bool) {
	if utf8.ValidString(value) {
		return value, true
	}
	decoded, err := charmap.Windows1252.NewDecoder().String(value)
	if err != nil || strings.ContainsRune(decoded, utf8.RuneError) {
		return "", false
	}
	return decoded, true
}

// ApplyRule applies a single field rule to a record. A column that is
// absent from the record (tolerable schema drift on an optional
// column) is always invalid for that field.
func ApplyRule(record domain.Record, rule domain.FieldRule) FieldResult {
	raw, present := record[rule.Column]
	if !present {
		return FieldResult{Column: rule.Column, Reason: domain.ReasonMissingColumn}
	}

	value, ok := DecodeValue(raw)
	if !ok {
		return FieldResult{Column: rule.Column, Reason: domain.ReasonEncodingError, Raw: raw}
	}

	if strings.TrimSpace(value) == "" {
		return FieldResult{Column: rule.Column, Reason: domain.ReasonMissingValue, Raw: raw}
	}

	switch rule.Kind {
	case domain.ValidatorEmail:
		if !ValidEmail(value) {
			return FieldResult{Column: rule.Column, Reason: domain.ReasonInvalidEmail, Raw: raw}
		}
	case domain.ValidatorPhone:
		if !ValidPhone(value) {
			return FieldResult{Column: rule.Column, Reason: domain.ReasonInvalidPhone, Raw: raw}
		}
	case domain.ValidatorDate:
		if _, ok := ParseDate(value, rule.DateFormats); !ok {
			return FieldResult{Column: rule.Column, Reason: domain.ReasonInvalidDate, Raw: raw}
		}
	case domain.ValidatorNumeric:
		if _, ok := ParseNumeric(value, rule.NonNegative); !ok {
			return FieldResult{Column: rule.Column, Reason: domain.ReasonInvalidNumber, Raw: raw}
		}
	case domain.ValidatorCurrency:
		if _, ok := ParseNumeric(value, rule.NonNegative); !ok {
			return FieldResult{Column: rule.Column, Reason: domain.ReasonInvalidCurrency, Raw: raw}
		}
	case domain.ValidatorText:
		// Non-empty decoded text is enough.
	}

	return FieldResult{Column: rule.Column, OK: true}
}

// ValidateRecord applies every rule independently and returns one
// result per rule, in rule order.
func ValidateRecord(record domain.Record, rules []domain.FieldRule) []FieldResult {
	results := make([]FieldResult, 0, len(rules))
	for _, rule := range rules {
		results = append(results, ApplyRule(record, rule))
	}
	return results
}

// RecordOK reports whether the record should be retained: every
// required rule must have passed, and no field may have failed to
// decode. A decode failure is a hard error for the whole record even on
// an optional field.
func RecordOK(results []FieldResult, rules []domain.FieldRule) bool {
	for i, rule := range rules {
		if rule.Required && !results[i].OK {
			return false
		}
		if results[i].Reason == domain.ReasonEncodingError {
			return false
		}
	}
	return true
}
