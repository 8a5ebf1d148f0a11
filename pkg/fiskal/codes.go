package fiskal

// ResponseCode is a short alphanumeric CIS result code (s-codes for system
// and signature errors, v-codes for business rule violations). The catalog
// below is the fixed table from section 13 ("Greške") of the Fiskalizacija
// technical specification; the service enforces the rules, this package only
// needs to decode them.
type ResponseCode string

const (
	// CodeNoError is the designated "no error" sentinel: the message was
	// processed correctly. Filtered out when decoding error lists.
	CodeNoError ResponseCode = "v100"

	// CodeUnknown is the placeholder for codes missing from the catalog, so
	// a new server-side code is surfaced instead of silently dropped.
	CodeUnknown ResponseCode = "???"
)

// =============================================================================
// s-codes: system, schema and certificate errors
// =============================================================================

const (
	CodeInvalidXML                  ResponseCode = "s001"
	CodeInvalidClientCertificate    ResponseCode = "s002"
	CodeWrongClientCertificateType  ResponseCode = "s003"
	CodeIncorrectDigitalSignature   ResponseCode = "s004"
	CodeOIBMismatch                 ResponseCode = "s005"
	CodeServerError                 ResponseCode = "s006"
	CodePaymentChangeDateMismatch   ResponseCode = "s007"
	CodePaymentChangeDataDiffers    ResponseCode = "s008"
)

// =============================================================================
// v-codes: business rule violations
// =============================================================================

const (
	CodeMessageDatetimeOutOfBounds ResponseCode = "v101"
	CodeInvoiceDatetimeOutOfBounds ResponseCode = "v103"
	CodeInvoiceIssuedAfterSending  ResponseCode = "v104"
	CodeInvalidSequenceNumber      ResponseCode = "v105"
	CodeSequenceNumberTooLarge     ResponseCode = "v106"
	CodeVATRateUnknown             ResponseCode = "v110"
	CodeVATBaseGreaterThanTotal    ResponseCode = "v112"
	CodeVATBaseLessThanTotal       ResponseCode = "v113"
	CodeVATSignMismatch            ResponseCode = "v114"
	CodeVATAmountTooSmall          ResponseCode = "v115"
	CodeVATAmountTooLarge          ResponseCode = "v116"
	CodeCTaxRateNegative           ResponseCode = "v117"
	CodeCTaxRateTooLarge           ResponseCode = "v118"
	CodeCTaxBaseGreaterThanTotal   ResponseCode = "v120"
	CodeCTaxBaseLessThanTotal      ResponseCode = "v121"
	CodeCTaxSignMismatch           ResponseCode = "v122"
	CodeCTaxAmountTooSmall         ResponseCode = "v123"
	CodeCTaxAmountTooLarge         ResponseCode = "v124"
	CodeOtherTaxIncluded           ResponseCode = "v125"
	CodeVATExemptGreaterThanTotal  ResponseCode = "v126"
	CodeVATExemptLessThanTotal     ResponseCode = "v127"
	CodeVATExemptSignMismatch      ResponseCode = "v128"
	CodeMarginGreaterThanTotal     ResponseCode = "v129"
	CodeMarginLessThanTotal        ResponseCode = "v130"
	CodeMarginSignMismatch         ResponseCode = "v131"
	CodeTaxExemptGreaterThanTotal  ResponseCode = "v132"
	CodeTaxExemptLessThanTotal     ResponseCode = "v133"
	CodeTaxExemptSignMismatch      ResponseCode = "v134"
	CodeFeeTooLarge                ResponseCode = "v135"
	CodeFeeTooSmall                ResponseCode = "v136"
	CodeTotalDiffersFromCalculated ResponseCode = "v137"
	CodeWireTotalTooLarge          ResponseCode = "v139"
	CodeSpecificPurposeNotEmpty    ResponseCode = "v141"
	CodeNonzeroVAT                 ResponseCode = "v142"
	CodeNonzeroVATExempt           ResponseCode = "v143"
	CodeNonzeroMarginTaxation      ResponseCode = "v144"
	CodeNonzeroTaxExemptTotal      ResponseCode = "v145"
	CodeCashTotalTooLarge          ResponseCode = "v148"
	CodeLateInvoice2Days           ResponseCode = "v152"
	CodeLateInvoice5Days           ResponseCode = "v153"
)

// responseCodeDescriptions is the process-wide code catalog, embedded in the
// binary. Messages are the catalog texts from the technical specification.
var responseCodeDescriptions = map[ResponseCode]string{
	CodeNoError:                    "Poruka je ispravna.",
	CodeInvalidXML:                 "Poruka nije u skladu s XML shemom.",
	CodeInvalidClientCertificate:   "Certifikat nije izdan od strane FINA RDC CA ili je istekao ili je ukinut.",
	CodeWrongClientCertificateType: "Certifikat ne sadrži naziv 'Fiskal'.",
	CodeIncorrectDigitalSignature:  "Neispravan digitalni potpis.",
	CodeOIBMismatch:                "OIB iz poruke zahtjeva nije jednak OIB-u iz certifikata.",
	CodeServerError:                "Sistemska pogreška prilikom obrade zahtjeva.",
	CodePaymentChangeDateMismatch:  "Datum izdavanja računa u poruci promjene načina plaćanja nije jednak trenutnom datumu.",
	CodePaymentChangeDataDiffers:   "Podaci za račun u poruci promjene načina plaćanja razlikuju se od podataka fiskaliziranog računa ili račun nije fiskaliziran.",
	CodeMessageDatetimeOutOfBounds: "Datum i vrijeme slanja računa je za više od 6 sati manje ili veće od datuma i vremena zaprimanja računa u sustav fiskalizacije.",
	CodeInvoiceDatetimeOutOfBounds: "Datum i vrijeme izdavanja računa je za više od 6 sati veće od datuma i vremena zaprimanja računa u sustav fiskalizacije.",
	CodeInvoiceIssuedAfterSending:  "'Datum i vrijeme izdavanja' računa je veće od 'Datum i vrijeme slanja'.",
	CodeInvalidSequenceNumber:      "'Brojčana oznaka računa' ima vrijednost '0'.",
	CodeSequenceNumberTooLarge:     "'Brojčana oznaka računa' ima više od 6 znamenki.",
	CodeVATRateUnknown:             "'Porezna stopa PDV-a' nije iz dozvoljenog skupa poreznih stopa.",
	CodeVATBaseGreaterThanTotal:    "'Osnovica PDV-a' je veća od podatka 'Ukupni iznos' kada je 'Ukupni iznos' pozitivnog predznaka ili je jednak 0.",
	CodeVATBaseLessThanTotal:       "'Osnovica PDV-a' je manja od podatka 'Ukupni iznos' kada je 'Ukupni iznos' negativnog predznaka ili je jednak 0.",
	CodeVATSignMismatch:            "'Osnovica PDV-a' nije istog predznaka kao i 'Ukupni iznos'.",
	CodeVATAmountTooSmall:          "'Iznos poreza PDV-a' je za više od 1 kn manji od izračuna iznosa PDV-a.",
	CodeVATAmountTooLarge:          "'Iznos poreza PDV-a' je za više od 1 kn veći od izračuna iznosa poreza PDV-a.",
	CodeCTaxRateNegative:           "'Porezna stopa PNP-a' je manja od 0,00.",
	CodeCTaxRateTooLarge:           "'Porezna stopa PNP-a' je veća od 3,00.",
	CodeCTaxBaseGreaterThanTotal:   "'Osnovica PNP-a' je veća od podatka 'Ukupni iznos' kada je 'Ukupni iznos' pozitivnog predznaka ili je jednak 0.",
	CodeCTaxBaseLessThanTotal:      "'Osnovica PNP-a' je manja od podatka 'Ukupni iznos' kada je 'Ukupni iznos' negativnog predznaka ili je jednak 0.",
	CodeCTaxSignMismatch:           "'Osnovica PNP-a' nije istog predznaka kao i 'Ukupni iznos'.",
	CodeCTaxAmountTooSmall:         "'Iznos poreza PNP-a' je za više od 1 kn manji od izračuna iznosa poreza PNP-a.",
	CodeCTaxAmountTooLarge:         "'Iznos poreza PNP-a' je za više od 1 kn veći od izračuna iznosa poreza PNP-a.",
	CodeOtherTaxIncluded:           "Na računu postoji podatak 'Ostali porezi' različit od '0,00'.",
	CodeVATExemptGreaterThanTotal:  "'Iznos oslobođenja' je veći od podatka 'Ukupni iznos' kada je 'Ukupni iznos' pozitivnog predznaka ili je jednak 0.",
	CodeVATExemptLessThanTotal:     "'Iznos oslobođenja' je manji od podatka 'Ukupni iznos' kada je 'Ukupni iznos' negativnog predznaka ili je jednak 0.",
	CodeVATExemptSignMismatch:      "'Iznos oslobođenja' nije istog predznaka kao i 'Ukupni iznos'.",
	CodeMarginGreaterThanTotal:     "'Iznos marže' je veći od podatka 'Ukupni iznos' kada je 'Ukupni iznos' pozitivnog predznaka ili je jednak 0.",
	CodeMarginLessThanTotal:        "'Iznos marže' je manji od podatka 'Ukupni iznos' kada je 'Ukupni iznos' negativnog predznaka ili je jednak 0.",
	CodeMarginSignMismatch:         "'Iznos marže' nije istog predznaka kao i 'Ukupni iznos'.",
	CodeTaxExemptGreaterThanTotal:  "'Iznos koji ne podliježe oporezivanju' je veći od podatka 'Ukupni iznos' kada je 'Ukupni iznos' pozitivnog predznaka ili je jednak 0.",
	CodeTaxExemptLessThanTotal:     "'Iznos koji ne podliježe oporezivanju' je manji od podatka 'Ukupni iznos' kada je 'Ukupni iznos' negativnog predznaka ili je jednak 0.",
	CodeTaxExemptSignMismatch:      "'Iznos koji ne podliježe oporezivanju' nije istog predznaka kao i 'Ukupni iznos'.",
	CodeFeeTooLarge:                "'Iznos naknade' je veći od 1.000,00 kn.",
	CodeFeeTooSmall:                "'Iznos naknade' je manji od -1.000,00 kn.",
	CodeTotalDiffersFromCalculated: "'Ukupan iznos na računu' nije ispravan prema formuli.",
	CodeWireTotalTooLarge:          "Maksimalni ukupni iznos za vrstu plaćanja 'Transakcijski račun' i 'Ostalo' je veći ili manji od 1 mil kn.",
	CodeSpecificPurposeNotEmpty:    "Polje 'Specifična namjena' je namijenjeno za buduće potrebe.",
	CodeNonzeroVAT:                 "Na računu postoji podatak 'PDV' različit od '0,00'.",
	CodeNonzeroVATExempt:           "Na računu postoji podatak 'Iznos oslobođenja' različit od 0,00 kn.",
	CodeNonzeroMarginTaxation:      "Na računu postoji podatak 'Iznos marže' različit od 0,00 kn.",
	CodeNonzeroTaxExemptTotal:      "Na računu postoji podatak 'Iznos koji ne podliježe oporezivanju' različit od 0,00 kn.",
	CodeCashTotalTooLarge:          "Maksimalni ukupni iznos za vrstu plaćanja 'Gotovina', 'Kartica' ili 'Ček' je veći ili manji od +/-75.000,00 kn.",
	CodeLateInvoice2Days:           "'Datum i vrijeme izdavanja' računa je za više od 2 dana do zaključno 5 dana manje od 'Datum i vrijeme obrade'.",
	CodeLateInvoice5Days:           "'Datum i vrijeme izdavanja' računa je za više od 5 dana manje od 'Datum i vrijeme obrade'.",
}

// ResponseCodeFromString maps a raw wire code to a catalog code, or
// CodeUnknown for codes missing from the catalog.
func ResponseCodeFromString(code string) ResponseCode {
	rc := ResponseCode(code)
	if _, ok := responseCodeDescriptions[rc]; !ok {
		return CodeUnknown
	}
	return rc
}

// Description returns the catalog text for the code, or an empty string for
// CodeUnknown and unknown codes.
func (c ResponseCode) Description() string {
	return responseCodeDescriptions[c]
}

// RawError is a single undecoded entry of a CIS error list.
type RawError struct {
	Code    string
	Message string
}

// DecodeErrors maps raw error entries through the catalog. The "no error"
// sentinel is filtered out (it marks a successful partial status); every
// other entry is kept, with unrecognized codes mapped to CodeUnknown rather
// than silently dropped.
func DecodeErrors(raw []RawError) []ResponseErrorDetail {
	details := make([]ResponseErrorDetail, 0, len(raw))
	for _, r := range raw {
		if r.Code == string(CodeNoError) {
			continue
		}
		details = append(details, ResponseErrorDetail{
			Code:    ResponseCodeFromString(r.Code),
			Message: r.Message,
		})
	}
	return details
}
