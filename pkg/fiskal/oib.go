package fiskal

import "regexp"

var oibPattern = regexp.MustCompile(`^\d{11}$`)

// OIB is the checksum-validated personal identification number (Osobni
// Identifikacijski Broj) of the invoicing business. Immutable once parsed;
// compare by value.
type OIB struct {
	value string
}

// ParseOIB validates the value and returns an OIB. The value must be exactly
// 11 ASCII digits with a valid control digit.
func ParseOIB(value string) (OIB, error) {
	if err := ValidateOIB(value); err != nil {
		return OIB{}, err
	}
	return OIB{value: value}, nil
}

// MustOIB is ParseOIB that panics on invalid input. For fixtures and tests.
func MustOIB(value string) OIB {
	oib, err := ParseOIB(value)
	if err != nil {
		panic(err)
	}
	return oib
}

func (o OIB) String() string { return o.value }

// IsZero reports whether the OIB is the unset zero value.
func (o OIB) IsZero() bool { return o.value == "" }

// ValidateOIB checks that the value is a well-formed OIB number.
// The control digit recurrence is the ISO 7064 MOD 11,10 scheme published by
// the tax administration (see https://regos.hr/app/uploads/2018/07/KONTROLA-OIB-a.pdf).
func ValidateOIB(value string) error {
	if !oibPattern.MatchString(value) {
		return validationErrorf("OIB must have exactly 11 digits")
	}
	expected := oibControlDigit(value)
	if actual := int(value[10] - '0'); actual != expected {
		return validationErrorf("incorrect OIB (control digit %d, expected %d)", actual, expected)
	}
	return nil
}

func oibControlDigit(value string) int {
	acc := 10
	for _, c := range value[:10] {
		acc = (int(c-'0') + acc) % 10
		if acc == 0 {
			acc = 10
		}
		acc = (acc * 2) % 11
	}
	return (11 - acc) % 10
}
