package cis_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fiskalhr/internal/infrastructure/cis"
	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// fakeTransport captures the outbound envelope and replies with a canned
// response.
type fakeTransport struct {
	lastOperation string
	lastEnvelope  []byte

	status int
	body   []byte
	err    error
}

func (f *fakeTransport) Invoke(_ context.Context, operation string, envelope []byte) (int, []byte, error) {
	f.lastOperation = operation
	f.lastEnvelope = envelope
	if f.err != nil {
		return 0, nil, f.err
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return status, f.body, nil
}

// serviceResponse builds a response envelope signed by the given signer, the
// way the CIS service answers signed operations.
func serviceResponse(t *testing.T, signer *cis.Signer, tag string, build func(respEl *etree.Element)) []byte {
	t.Helper()
	doc := etree.NewDocument()
	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", "http://schemas.xmlsoap.org/soap/envelope/")
	body := envelope.CreateElement("soapenv:Body")
	respEl := body.CreateElement(tag)
	respEl.CreateAttr("xmlns", "http://www.apis-it.hr/fin/2012/types/f73")
	zaglavlje := respEl.CreateElement("Zaglavlje")
	id := zaglavlje.CreateElement("IdPoruke")
	id.SetText(uuid.NewString())
	dt := zaglavlje.CreateElement("DatumVrijeme")
	dt.SetText("01.01.2022T10:30:01")
	if build != nil {
		build(respEl)
	}
	if signer != nil {
		require.NoError(t, signer.SignEnvelope(doc))
	}
	raw, err := doc.WriteToBytes()
	require.NoError(t, err)
	return raw
}

func greskaElement(parent *etree.Element, code, message string) {
	greske := parent.FindElement("./Greske")
	if greske == nil {
		greske = parent.CreateElement("Greske")
	}
	greska := greske.CreateElement("Greska")
	sifra := greska.CreateElement("SifraGreske")
	sifra.SetText(code)
	poruka := greska.CreateElement("PorukaGreske")
	poruka.SetText(message)
}

// testClient wires a client whose requests are signed by a fresh issuer key
// and whose responses are expected from serviceSigner.
func testClient(t *testing.T, transport cis.Transport) (*cis.Client, *cis.Signer) {
	t.Helper()
	issuerSigner, _ := newTestSigner(t)
	serviceSigner, serviceMaterial := newTestSigner(t)
	verifier, err := cis.NewVerifier(serviceMaterial.certPath, nil)
	require.NoError(t, err)
	return cis.NewClient(transport, issuerSigner, verifier, zerolog.Nop()), serviceSigner
}

func clientInvoice(t *testing.T) *fiskal.Invoice {
	t.Helper()
	inv := fiskal.NewInvoice()
	inv.OIB = fiskal.MustOIB("12312312316")
	inv.IssuedAt = time.Date(2022, 1, 1, 10, 30, 0, 0, time.Local)
	inv.Number = fiskal.MustInvoiceNumber("1/X/1")
	total, err := fiskal.AmountFromString("100.00")
	require.NoError(t, err)
	inv.Total = &total
	return inv
}

func TestRequiresSignature(t *testing.T) {
	assert.False(t, cis.RequiresSignature(cis.OpEcho))
	assert.True(t, cis.RequiresSignature(cis.OpSubmitInvoice))
	assert.True(t, cis.RequiresSignature(cis.OpSubmitInvoiceDoc))
	assert.True(t, cis.RequiresSignature(cis.OpCheckInvoice))
	assert.True(t, cis.RequiresSignature(cis.OpChangePaymentMethod))
	assert.True(t, cis.RequiresSignature(cis.OpSubmitDocument))
}

func TestEcho(t *testing.T) {
	transport := &fakeTransport{}
	client, _ := testClient(t, transport)

	doc := etree.NewDocument()
	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", "http://schemas.xmlsoap.org/soap/envelope/")
	respEl := envelope.CreateElement("soapenv:Body").CreateElement("EchoOdgovor")
	respEl.CreateAttr("xmlns", "http://www.apis-it.hr/fin/2012/types/f73")
	respEl.SetText("ping")
	transport.body, _ = doc.WriteToBytes()

	require.NoError(t, client.Echo(context.Background(), "ping"))
	assert.Equal(t, cis.OpEcho, transport.lastOperation)

	// Echo requests are never signed.
	sent := etree.NewDocument()
	require.NoError(t, sent.ReadFromBytes(transport.lastEnvelope))
	assert.Nil(t, sent.FindElement("//Signature"))
	assert.Equal(t, "ping", sent.FindElement("//EchoZahtjev").Text())
}

func TestEcho_Mismatch(t *testing.T) {
	transport := &fakeTransport{}
	client, _ := testClient(t, transport)

	doc := etree.NewDocument()
	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", "http://schemas.xmlsoap.org/soap/envelope/")
	respEl := envelope.CreateElement("soapenv:Body").CreateElement("EchoOdgovor")
	respEl.SetText("pong")
	transport.body, _ = doc.WriteToBytes()

	err := client.Echo(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pong")
}

func TestSubmit(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)

	const wantJIR = "9d6f5bb6-da48-4fcd-a803-4586a025e0e4"
	transport.body = serviceResponse(t, serviceSigner, "RacunOdgovor", func(respEl *etree.Element) {
		jir := respEl.CreateElement("Jir")
		jir.SetText(wantJIR)
	})

	jir, err := client.Submit(context.Background(), clientInvoice(t), nil)
	require.NoError(t, err)
	assert.Equal(t, wantJIR, jir)
	assert.Equal(t, cis.OpSubmitInvoice, transport.lastOperation)

	// Outbound envelope: signed request with header and wire invoice.
	sent := etree.NewDocument()
	require.NoError(t, sent.ReadFromBytes(transport.lastEnvelope))
	reqEl := sent.FindElement("//RacunZahtjev")
	require.NotNil(t, reqEl)
	assert.NotNil(t, reqEl.FindElement("./Signature"))
	assert.NotEmpty(t, reqEl.SelectAttrValue("Id", ""))
	assert.NotNil(t, reqEl.FindElement("./Zaglavlje/IdPoruke"))
	assert.Equal(t, "12312312316", reqEl.FindElement("./Racun/Oib").Text())
	assert.NotEmpty(t, reqEl.FindElement("./Racun/ZastKod").Text())
}

func TestSubmit_HeaderOverride(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)
	transport.body = serviceResponse(t, serviceSigner, "RacunOdgovor", func(respEl *etree.Element) {
		jir := respEl.CreateElement("Jir")
		jir.SetText("x")
	})

	messageID := uuid.MustParse("3a6d4bba-dca2-4271-9c9d-74983d44318d")
	sentAt := time.Date(2022, 1, 1, 10, 30, 0, 0, time.Local)
	_, err := client.Submit(context.Background(), clientInvoice(t), &cis.Header{
		MessageID: messageID,
		Timestamp: sentAt,
	})
	require.NoError(t, err)

	sent := etree.NewDocument()
	require.NoError(t, sent.ReadFromBytes(transport.lastEnvelope))
	assert.Equal(t, messageID.String(), sent.FindElement("//Zaglavlje/IdPoruke").Text())
	assert.Equal(t, "01.01.2022T10:30:00", sent.FindElement("//Zaglavlje/DatumVrijeme").Text())
}

func TestSubmit_ErrorList(t *testing.T) {
	transport := &fakeTransport{}
	client, _ := testClient(t, transport)

	// Error responses are decoded before signature verification, so an
	// unsigned error envelope is fine.
	transport.body = serviceResponse(t, nil, "RacunOdgovor", func(respEl *etree.Element) {
		greskaElement(respEl, "s005", "OIB iz poruke zahtjeva nije jednak OIB-u iz certifikata.")
		greskaElement(respEl, "v106", "'Brojčana oznaka računa' ima više od 6 znamenki.")
	})

	_, err := client.Submit(context.Background(), clientInvoice(t), nil)
	require.Error(t, err)
	var rerr *fiskal.ResponseError
	require.ErrorAs(t, err, &rerr)
	require.Len(t, rerr.Details, 2)
	assert.Equal(t, fiskal.CodeOIBMismatch, rerr.Details[0].Code)
	assert.Equal(t, fiskal.CodeSequenceNumberTooLarge, rerr.Details[1].Code)
	assert.Equal(t, "Service error: s005,v106", rerr.Error())
}

// A list containing only the "no error" sentinel is a success.
func TestSubmit_NoErrorSentinel(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)
	transport.body = serviceResponse(t, serviceSigner, "RacunOdgovor", func(respEl *etree.Element) {
		jir := respEl.CreateElement("Jir")
		jir.SetText("assigned")
		greskaElement(respEl, "v100", "Poruka je ispravna.")
	})

	jir, err := client.Submit(context.Background(), clientInvoice(t), nil)
	require.NoError(t, err)
	assert.Equal(t, "assigned", jir)
}

func TestSubmit_SOAPFault(t *testing.T) {
	transport := &fakeTransport{status: http.StatusInternalServerError}
	client, _ := testClient(t, transport)

	doc := etree.NewDocument()
	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", "http://schemas.xmlsoap.org/soap/envelope/")
	fault := envelope.CreateElement("soapenv:Body").CreateElement("soapenv:Fault")
	faultString := fault.CreateElement("faultstring")
	faultString.SetText("Server error")
	detail := fault.CreateElement("detail")
	greskaElement(detail, "s004", "Neispravan digitalni potpis.")
	transport.body, _ = doc.WriteToBytes()

	_, err := client.Submit(context.Background(), clientInvoice(t), nil)
	require.Error(t, err)
	var rerr *fiskal.ResponseError
	require.ErrorAs(t, err, &rerr)
	require.Len(t, rerr.Details, 1)
	assert.Equal(t, fiskal.CodeIncorrectDigitalSignature, rerr.Details[0].Code)
}

func TestSubmit_MalformedResponse(t *testing.T) {
	transport := &fakeTransport{body: []byte("<not-xml")}
	client, _ := testClient(t, transport)

	_, err := client.Submit(context.Background(), clientInvoice(t), nil)
	require.Error(t, err)
	var rerr *fiskal.ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Empty(t, rerr.Details)
}

// An otherwise valid success response signed by an untrusted key must be
// rejected even though it carries a JIR.
func TestSubmit_UntrustedResponseSignature(t *testing.T) {
	transport := &fakeTransport{}
	client, _ := testClient(t, transport)

	rogueSigner, _ := newTestSigner(t)
	transport.body = serviceResponse(t, rogueSigner, "RacunOdgovor", func(respEl *etree.Element) {
		jir := respEl.CreateElement("Jir")
		jir.SetText("forged")
	})

	_, err := client.Submit(context.Background(), clientInvoice(t), nil)
	require.Error(t, err)
	var serr *fiskal.SignatureError
	assert.ErrorAs(t, err, &serr)
}

func TestCheck(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)
	transport.body = serviceResponse(t, serviceSigner, "ProvjeraOdgovor", nil)

	require.NoError(t, client.Check(context.Background(), clientInvoice(t), nil))
	assert.Equal(t, cis.OpCheckInvoice, transport.lastOperation)

	sent := etree.NewDocument()
	require.NoError(t, sent.ReadFromBytes(transport.lastEnvelope))
	assert.NotNil(t, sent.FindElement("//ProvjeraZahtjev/Racun"))
}

func TestChangePaymentMethod(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)
	transport.body = serviceResponse(t, serviceSigner, "PromijeniNacPlacOdgovor", nil)

	change := fiskal.NewInvoicePaymentMethodChange()
	change.Invoice = *clientInvoice(t)
	change.Invoice.PaymentMethod = fiskal.PaymentCash
	change.NewPaymentMethod = fiskal.PaymentCard
	change.OriginalZKI = fiskal.MustZKI("0123456789abcdef0123456789abcdef")

	require.NoError(t, client.ChangePaymentMethod(context.Background(), change, nil))
	assert.Equal(t, cis.OpChangePaymentMethod, transport.lastOperation)

	sent := etree.NewDocument()
	require.NoError(t, sent.ReadFromBytes(transport.lastEnvelope))
	reqEl := sent.FindElement("//PromijeniNacPlacZahtjev")
	require.NotNil(t, reqEl)
	assert.Equal(t, "K", reqEl.FindElement("./Racun/PromijenjeniNacinPlac").Text())
	assert.Equal(t, change.OriginalZKI.String(), reqEl.FindElement("./Racun/ZastKod").Text())
}

func TestSubmitDocument(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)
	transport.body = serviceResponse(t, serviceSigner, "PrateciDokumentiOdgovor", func(respEl *etree.Element) {
		jir := respEl.CreateElement("Jir")
		jir.SetText("pd-jir")
	})

	doc := fiskal.NewSupportingDocument()
	doc.OIB = fiskal.MustOIB("12312312316")
	doc.Number = fiskal.MustInvoiceNumber("7/X/2")
	total, err := fiskal.AmountFromString("250.00")
	require.NoError(t, err)
	doc.Total = &total

	jir, err := client.SubmitDocument(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Equal(t, "pd-jir", jir)
	assert.Equal(t, cis.OpSubmitDocument, transport.lastOperation)

	sent := etree.NewDocument()
	require.NoError(t, sent.ReadFromBytes(transport.lastEnvelope))
	assert.NotNil(t, sent.FindElement("//PrateciDokumentiZahtjev/PrateciDokument/ZastKodPD"))
}

func TestSubmitWithDoc(t *testing.T) {
	transport := &fakeTransport{}
	client, serviceSigner := testClient(t, transport)
	transport.body = serviceResponse(t, serviceSigner, "RacunPDOdgovor", func(respEl *etree.Element) {
		jir := respEl.CreateElement("Jir")
		jir.SetText("racun-pd-jir")
	})

	inv := fiskal.NewInvoiceWithDoc()
	inv.Invoice = *clientInvoice(t)
	inv.DocumentJIR = "pd-jir"

	jir, err := client.SubmitWithDoc(context.Background(), inv, nil)
	require.NoError(t, err)
	assert.Equal(t, "racun-pd-jir", jir)
	assert.Equal(t, cis.OpSubmitInvoiceDoc, transport.lastOperation)
}

// HTTPTransport wire shape: content type, SOAPAction, body pass-through.
func TestHTTPTransport(t *testing.T) {
	var gotContentType, gotAction string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAction = r.Header.Get("SOAPAction")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<response/>"))
	}))
	defer server.Close()

	transport, err := cis.NewHTTPTransport(server.URL, "")
	require.NoError(t, err)

	status, body, err := transport.Invoke(context.Background(), cis.OpSubmitInvoice, []byte("<envelope/>"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "<response/>", string(body))
	assert.Equal(t, "text/xml; charset=utf-8", gotContentType)
	assert.Equal(t, "http://www.apis-it.hr/fin/2012/services/FiskalizacijaService/racuni", gotAction)
}

func TestNewHTTPTransport_BadCABundle(t *testing.T) {
	_, err := cis.NewHTTPTransport("https://example.invalid", "/nonexistent/ca.pem")
	require.Error(t, err)
	var cerr *fiskal.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
