package fiskal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wire-exact date-time format used in all document
// fields and in the ZKI payload: zero-padded, 24-hour clock, literal 'T'.
const TimestampLayout = "02.01.2006T15:04:05"

var zkiPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// PayloadSigner signs a raw ZKI payload and returns the 32-character
// hexadecimal digest. Implemented by the cis signer; faked in tests.
type PayloadSigner interface {
	SignZKIPayload(payload []byte) (string, error)
}

// ZKI is the issuer protection code (Zaštitni Kod Izdavatelja): a 32
// character lowercase hex digest proving issuer control over the invoice,
// computed offline without a network round-trip.
type ZKI struct {
	value string
}

// ParseZKI wraps a known hexadecimal digest, e.g. when referencing a prior
// invoice for a payment-method-change operation.
func ParseZKI(value string) (ZKI, error) {
	if !zkiPattern.MatchString(value) {
		return ZKI{}, validationErrorf("incorrect ZKI format: %q", value)
	}
	return ZKI{value: value}, nil
}

// MustZKI is ParseZKI that panics on invalid input.
func MustZKI(value string) ZKI {
	z, err := ParseZKI(value)
	if err != nil {
		panic(err)
	}
	return z
}

func (z ZKI) String() string { return z.value }

// IsZero reports whether the ZKI is the unset zero value.
func (z ZKI) IsZero() bool { return z.value == "" }

// ZKIPayload builds the canonical payload string signed to produce the ZKI:
// OIB, issue timestamp, sequence number, location code, device number and
// total, concatenated with no separators. Wire-exact; changing any field
// changes the resulting code.
//
// See section 12 of the Fiskalizacija technical documentation.
func ZKIPayload(oib OIB, issuedAt time.Time, number InvoiceNumber, total Amount) string {
	var sb strings.Builder
	sb.WriteString(oib.String())
	sb.WriteString(issuedAt.Format(TimestampLayout))
	sb.WriteString(strconv.Itoa(number.SequenceNumber))
	sb.WriteString(number.LocationCode)
	sb.WriteString(strconv.Itoa(number.DeviceNumber))
	sb.WriteString(total.String())
	return sb.String()
}

// CalculateZKI builds the canonical payload and obtains its digest from the
// signer. Pure apart from the signing call.
func CalculateZKI(oib OIB, issuedAt time.Time, number InvoiceNumber, total Amount, signer PayloadSigner) (ZKI, error) {
	digest, err := signer.SignZKIPayload([]byte(ZKIPayload(oib, issuedAt, number, total)))
	if err != nil {
		return ZKI{}, err
	}
	return ParseZKI(digest)
}
