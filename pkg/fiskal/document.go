package fiskal

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
)

// Document is the common behaviour of every fiscalized document variant.
// Each variant owns its required-field set and its wire shape; serialization
// computes the ZKI first, which also validates presence of the shared
// required fields.
//
// A document is constructed once per transaction, populated by direct field
// assignment, serialized once and discarded. Instances are not safe for
// concurrent mutation.
type Document interface {
	RequiredFields() []string
	ToWireObject(signer PayloadSigner) (*etree.Element, error)
}

// baseDocument carries the fields shared by invoices and supporting
// documents. Optional fields stay at their zero value when unset; Reset
// restores every field to its documented default.
type baseDocument struct {
	// OIB of the invoicing business. Must equal the OIB the client
	// certificate is issued to. Required.
	OIB OIB

	// IssuedAt is the date and time of issue. Defaults to the construction
	// time; the zero value is treated as unset and refreshed on Reset.
	IssuedAt time.Time

	// Number is the composite invoice identifier. Required.
	Number InvoiceNumber

	// Total is the full amount stated on the invoice or supporting
	// document. Required; nil means unset.
	Total *Amount

	// LateRegistration marks subsequent delivery (naknadna dostava).
	// Default false.
	LateRegistration bool
}

func newBaseDocument() baseDocument {
	return baseDocument{IssuedAt: time.Now()}
}

// Reset restores the shared fields to their defaults.
func (d *baseDocument) Reset() {
	*d = newBaseDocument()
}

// CalculateZKI computes the issuer protection code for the document. Fails
// with a StructuralError when OIB, invoice number or total is missing;
// serialization relies on this as its presence check.
func (d *baseDocument) CalculateZKI(signer PayloadSigner) (ZKI, error) {
	if d.OIB.IsZero() {
		return ZKI{}, structuralErrorf("OIB is required")
	}
	if d.Number.IsZero() {
		return ZKI{}, structuralErrorf("invoice number is required")
	}
	if d.Total == nil {
		return ZKI{}, structuralErrorf("total amount is required")
	}
	issuedAt := d.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}
	return CalculateZKI(d.OIB, issuedAt, d.Number, *d.Total, signer)
}

// Invoice is the regular fiscalized invoice (Račun). Constructed via
// NewInvoice, which applies the documented defaults.
type Invoice struct {
	baseDocument

	// VAT lines (PDV). Absent when nil; must be non-empty when set.
	VAT []TaxItem

	// ConsumptionTax lines (PNP). Absent when nil; must be non-empty when set.
	ConsumptionTax []TaxItem

	// Fees (naknade). Absent when nil; must be non-empty when set.
	Fees []Fee

	// VATRegistered marks the issuer as registered in the VAT system.
	// Default false.
	VATRegistered bool

	// SequenceScope selects per-location or per-device numbering.
	// Default ScopeLocation.
	SequenceScope SequenceScope

	// VATExempt is the VAT-exempt amount, when any.
	VATExempt *Amount

	// MarginTaxation is the amount under the special margin scheme, when any.
	MarginTaxation *Amount

	// TaxExemptTotal is the amount not subject to taxation, when any.
	TaxExemptTotal *Amount

	// PaymentMethod defaults to PaymentOther.
	PaymentMethod PaymentMethod

	// OperatorOIB identifies the operator at the invoicing device.
	// Defaults to the document's own OIB when unset.
	OperatorOIB OIB

	// ParagonNumber is set when late-reporting a manually issued invoice.
	ParagonNumber string
}

// NewInvoice returns an invoice with every optional field at its documented
// default: issue time now, per-location sequencing, payment method "other".
func NewInvoice() *Invoice {
	return &Invoice{
		baseDocument:  newBaseDocument(),
		SequenceScope: ScopeLocation,
		PaymentMethod: PaymentOther,
	}
}

// Reset restores every field to its documented default.
func (inv *Invoice) Reset() {
	*inv = *NewInvoice()
}

// RequiredFields lists the wire fields that must be populated before
// serialization. Fields with defaults are always present and not listed.
func (inv *Invoice) RequiredFields() []string {
	return []string{"Oib", "BrRac", "IznosUkupno"}
}

// effectiveOperatorOIB applies the issuer-OIB fallback.
func (inv *Invoice) effectiveOperatorOIB() OIB {
	if inv.OperatorOIB.IsZero() {
		return inv.OIB
	}
	return inv.OperatorOIB
}

// ToWireObject serializes the invoice into the Racun wire element, computing
// the ZKI as a side effect. See section 2.1 "Račun" of the technical
// specification for the data set.
func (inv *Invoice) ToWireObject(signer PayloadSigner) (*etree.Element, error) {
	zki, err := inv.CalculateZKI(signer)
	if err != nil {
		return nil, err
	}
	return inv.wireObject(zki)
}

// wireObject builds the Racun element around the supplied protection code.
// The payment-method-change variant passes the original invoice's ZKI here.
func (inv *Invoice) wireObject(zki ZKI) (*etree.Element, error) {
	if inv.VAT != nil && len(inv.VAT) == 0 {
		return nil, structuralErrorf("VAT must not be an empty list")
	}
	if inv.ConsumptionTax != nil && len(inv.ConsumptionTax) == 0 {
		return nil, structuralErrorf("consumption tax must not be an empty list")
	}
	if inv.Fees != nil && len(inv.Fees) == 0 {
		return nil, structuralErrorf("fees must not be an empty list")
	}
	if !inv.SequenceScope.Valid() {
		return nil, structuralErrorf("unknown sequence scope %q", string(inv.SequenceScope))
	}
	if !inv.PaymentMethod.Valid() {
		return nil, structuralErrorf("unknown payment method %q", string(inv.PaymentMethod))
	}

	racun := etree.NewElement("Racun")
	addText(racun, "Oib", inv.OIB.String())
	addText(racun, "USustPdv", strconv.FormatBool(inv.VATRegistered))
	addText(racun, "DatVrijeme", inv.IssuedAt.Format(TimestampLayout))
	addText(racun, "OznSlijed", inv.SequenceScope.String())

	brRac := racun.CreateElement("BrRac")
	addText(brRac, "BrOznRac", strconv.Itoa(inv.Number.SequenceNumber))
	addText(brRac, "OznPosPr", inv.Number.LocationCode)
	addText(brRac, "OznNapUr", strconv.Itoa(inv.Number.DeviceNumber))

	if inv.VAT != nil {
		addTaxList(racun, "Pdv", inv.VAT)
	}
	if inv.ConsumptionTax != nil {
		addTaxList(racun, "Pnp", inv.ConsumptionTax)
	}
	if inv.VATExempt != nil {
		addText(racun, "IznosOslobPdv", inv.VATExempt.String())
	}
	if inv.MarginTaxation != nil {
		addText(racun, "IznosMarza", inv.MarginTaxation.String())
	}
	if inv.TaxExemptTotal != nil {
		addText(racun, "IznosNePodlOpor", inv.TaxExemptTotal.String())
	}
	if inv.Fees != nil {
		naknade := racun.CreateElement("Naknade")
		for _, fee := range inv.Fees {
			naknada := naknade.CreateElement("Naknada")
			addText(naknada, "NazivN", fee.Name)
			addText(naknada, "IznosN", fee.Amount.String())
		}
	}
	addText(racun, "IznosUkupno", inv.Total.String())
	addText(racun, "NacinPlac", inv.PaymentMethod.String())
	addText(racun, "OibOper", inv.effectiveOperatorOIB().String())
	addText(racun, "ZastKod", zki.String())
	addText(racun, "NakDost", strconv.FormatBool(inv.LateRegistration))
	if inv.ParagonNumber != "" {
		addText(racun, "ParagonBrRac", inv.ParagonNumber)
	}
	// OstaliPor and SpecNamj are reserved: the service rejects any value in
	// them (rule codes v125 and v141), so they are never emitted.
	return racun, nil
}

// InvoiceWithDoc is an invoice referencing an accompanying supporting
// document. Exactly one of DocumentJIR and DocumentZKI must be set. See
// section 2.1.1.2 of the technical specification.
type InvoiceWithDoc struct {
	Invoice

	// DocumentJIR is the service-assigned identifier of the supporting
	// document (JIR PD).
	DocumentJIR string

	// DocumentZKI is the protection code of the supporting document
	// (ZKI PD), used when the supporting document has no JIR.
	DocumentZKI ZKI
}

// NewInvoiceWithDoc returns an invoice-with-document with invoice defaults.
func NewInvoiceWithDoc() *InvoiceWithDoc {
	return &InvoiceWithDoc{Invoice: *NewInvoice()}
}

// RequiredFields adds the supporting-document reference to the invoice set.
func (inv *InvoiceWithDoc) RequiredFields() []string {
	return append(inv.Invoice.RequiredFields(), "PrateciDokument")
}

// ToWireObject serializes the invoice and appends the supporting-document
// reference, enforcing the exactly-one rule on JIR PD / ZKI PD.
func (inv *InvoiceWithDoc) ToWireObject(signer PayloadSigner) (*etree.Element, error) {
	hasJIR := inv.DocumentJIR != ""
	hasZKI := !inv.DocumentZKI.IsZero()
	if hasJIR == hasZKI {
		return nil, structuralErrorf("exactly one of document JIR and document ZKI must be set")
	}

	racun, err := inv.Invoice.ToWireObject(signer)
	if err != nil {
		return nil, err
	}
	pd := racun.CreateElement("PrateciDokument")
	if hasJIR {
		addText(pd, "JirPD", inv.DocumentJIR)
	} else {
		addText(pd, "ZastKodPD", inv.DocumentZKI.String())
	}
	return racun, nil
}

// InvoicePaymentMethodChange carries the original invoice data for a
// payment method change operation. The original ZKI is supplied externally
// and emitted verbatim; a fresh code is still computed to validate the
// shared required fields.
type InvoicePaymentMethodChange struct {
	Invoice

	// NewPaymentMethod replaces the invoice's payment method. Required and
	// must differ from the current one.
	NewPaymentMethod PaymentMethod

	// OriginalZKI is the protection code of the fiscalized invoice being
	// changed. Required; never recomputed.
	OriginalZKI ZKI
}

// NewInvoicePaymentMethodChange returns a change document with invoice
// defaults.
func NewInvoicePaymentMethodChange() *InvoicePaymentMethodChange {
	return &InvoicePaymentMethodChange{Invoice: *NewInvoice()}
}

// RequiredFields adds the original ZKI and the new payment method.
func (inv *InvoicePaymentMethodChange) RequiredFields() []string {
	return append(inv.Invoice.RequiredFields(), "ZastKod", "PromijenjeniNacinPlac")
}

// ToWireObject serializes the change request. The emitted ZastKod is the
// original invoice's code, not a newly computed one.
func (inv *InvoicePaymentMethodChange) ToWireObject(signer PayloadSigner) (*etree.Element, error) {
	if inv.OriginalZKI.IsZero() {
		return nil, structuralErrorf("original ZKI must be set")
	}
	if !inv.NewPaymentMethod.Valid() {
		return nil, structuralErrorf("new payment method must be set")
	}
	if inv.NewPaymentMethod == inv.PaymentMethod {
		return nil, structuralErrorf("new payment method can't be the same as current")
	}

	// Still computed so the shared required fields are validated.
	if _, err := inv.CalculateZKI(signer); err != nil {
		return nil, err
	}
	racun, err := inv.wireObject(inv.OriginalZKI)
	if err != nil {
		return nil, err
	}
	addText(racun, "PromijenjeniNacinPlac", inv.NewPaymentMethod.String())
	return racun, nil
}

// SupportingDocument is the minimal sibling of Invoice (Prateći dokument):
// only the shared base fields, fiscalized ahead of the invoice itself.
type SupportingDocument struct {
	baseDocument
}

// NewSupportingDocument returns a supporting document with base defaults.
func NewSupportingDocument() *SupportingDocument {
	return &SupportingDocument{baseDocument: newBaseDocument()}
}

// RequiredFields lists the wire fields that must be populated before
// serialization.
func (d *SupportingDocument) RequiredFields() []string {
	return []string{"Oib", "BrPratecegDokumenta", "IznosUkupno"}
}

// ToWireObject serializes the supporting document into the PrateciDokument
// wire element.
func (d *SupportingDocument) ToWireObject(signer PayloadSigner) (*etree.Element, error) {
	zki, err := d.CalculateZKI(signer)
	if err != nil {
		return nil, err
	}

	pd := etree.NewElement("PrateciDokument")
	addText(pd, "Oib", d.OIB.String())
	addText(pd, "DatVrijeme", d.IssuedAt.Format(TimestampLayout))

	brPD := pd.CreateElement("BrPratecegDokumenta")
	addText(brPD, "BrOznPD", strconv.Itoa(d.Number.SequenceNumber))
	addText(brPD, "OznPosPr", d.Number.LocationCode)
	addText(brPD, "OznNapUr", strconv.Itoa(d.Number.DeviceNumber))

	addText(pd, "IznosUkupno", d.Total.String())
	addText(pd, "ZastKodPD", zki.String())
	addText(pd, "NakDost", strconv.FormatBool(d.LateRegistration))
	return pd, nil
}

func addText(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	el.SetText(text)
	return el
}

func addTaxList(parent *etree.Element, tag string, items []TaxItem) {
	wrapper := parent.CreateElement(tag)
	for _, item := range items {
		porez := wrapper.CreateElement("Porez")
		addText(porez, "Stopa", item.Rate.String())
		addText(porez, "Osnovica", item.Base.String())
		addText(porez, "Iznos", item.Amount.String())
	}
}
