package fiskal

// PaymentMethod is the NacinPlac wire code.
type PaymentMethod string

const (
	// PaymentCash is gotovina.
	PaymentCash PaymentMethod = "G"
	// PaymentCard is kartica.
	PaymentCard PaymentMethod = "K"
	// PaymentCheck is ček.
	PaymentCheck PaymentMethod = "C"
	// PaymentWire is virmansko plaćanje (bank transfer).
	PaymentWire PaymentMethod = "T"
	// PaymentOther is ostalo. Default for new invoices.
	PaymentOther PaymentMethod = "O"
)

// Valid reports whether the code is one of the catalog values.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentCheck, PaymentWire, PaymentOther:
		return true
	}
	return false
}

func (p PaymentMethod) String() string { return string(p) }

// SequenceScope is the OznSlijed wire code: whether invoice sequence numbers
// reset per business premises or per invoicing device.
type SequenceScope string

const (
	// ScopeLocation numbers invoices per business premises. Default.
	ScopeLocation SequenceScope = "P"
	// ScopeDevice numbers invoices per invoicing device.
	ScopeDevice SequenceScope = "N"
)

// Valid reports whether the code is one of the catalog values.
func (s SequenceScope) Valid() bool {
	return s == ScopeLocation || s == ScopeDevice
}

func (s SequenceScope) String() string { return string(s) }
