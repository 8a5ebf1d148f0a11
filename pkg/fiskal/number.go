package fiskal

import (
	"fmt"
	"regexp"
	"strconv"
)

var invoiceNumberPattern = regexp.MustCompile(`^(\d+)/([0-9A-Za-z]+)/(\d+)$`)

// InvoiceNumber is the composite invoice identifier in the form
// "seq/location/device": the sequence number of the invoice, the
// alphanumeric code of the business premises, and the number of the
// invoicing device. Round-trips losslessly through its string form.
//
// No upper bound on the sequence number is enforced here; CIS rejects
// numbers above 6 digits with its own rule code (v106).
type InvoiceNumber struct {
	SequenceNumber int
	LocationCode   string
	DeviceNumber   int
}

// ParseInvoiceNumber parses an identifier in the "seq/loc/dev" form.
func ParseInvoiceNumber(value string) (InvoiceNumber, error) {
	m := invoiceNumberPattern.FindStringSubmatch(value)
	if m == nil {
		return InvoiceNumber{}, validationErrorf("invoice number %q must be in format nnn/ABC/nnn", value)
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return InvoiceNumber{}, validationErrorf("invoice sequence number %q out of range", m[1])
	}
	dev, err := strconv.Atoi(m[3])
	if err != nil {
		return InvoiceNumber{}, validationErrorf("invoice device number %q out of range", m[3])
	}
	return InvoiceNumber{SequenceNumber: seq, LocationCode: m[2], DeviceNumber: dev}, nil
}

// MustInvoiceNumber is ParseInvoiceNumber that panics on invalid input.
func MustInvoiceNumber(value string) InvoiceNumber {
	n, err := ParseInvoiceNumber(value)
	if err != nil {
		panic(err)
	}
	return n
}

func (n InvoiceNumber) String() string {
	return fmt.Sprintf("%d/%s/%d", n.SequenceNumber, n.LocationCode, n.DeviceNumber)
}

// IsZero reports whether the number is the unset zero value.
func (n InvoiceNumber) IsZero() bool {
	return n.LocationCode == ""
}
