// Package cis implements the client side of the Fiskalizacija CIS SOAP web
// service: envelope construction, the enveloped-signature interceptor,
// invocation over HTTPS and fault decoding.
package cis

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// ── Service constants ─────────────────────────────────────────────────────────

const (
	// ProductionURL is the CIS production endpoint.
	ProductionURL = "https://cis.porezna-uprava.hr:8449/FiskalizacijaService"
	// DemoURL is the CIS test (demo) endpoint. The provjera operation is
	// only available here.
	DemoURL = "https://cistest.apis-it.hr:8449/FiskalizacijaServiceTest"

	namespaceSOAP = "http://schemas.xmlsoap.org/soap/envelope/"
	namespaceF73  = "http://www.apis-it.hr/fin/2012/types/f73"

	soapActionBase = "http://www.apis-it.hr/fin/2012/services/FiskalizacijaService/"
)

// SOAP operation names. The signature predicate is keyed on these.
const (
	OpEcho                = "echo"
	OpSubmitInvoice       = "racuni"
	OpSubmitInvoiceDoc    = "racuniPD"
	OpCheckInvoice        = "provjera"
	OpChangePaymentMethod = "promijeniNacPlac"
	OpSubmitDocument      = "prateciDokumenti"
)

// RequiresSignature reports whether the operation's request must be signed
// and its response verified. Only the echo health check is exempt.
func RequiresSignature(operation string) bool {
	return operation != OpEcho
}

// ── Transport boundary ────────────────────────────────────────────────────────

// Transport delivers a serialized SOAP envelope to the service and returns
// the raw response body. Implementations surface transport failures as
// errors; service-level faults come back as response bytes with a non-200
// status and are decoded by the client.
type Transport interface {
	Invoke(ctx context.Context, operation string, envelope []byte) (status int, body []byte, err error)
}

// HTTPTransport is the production Transport over HTTPS.
type HTTPTransport struct {
	url        string
	httpClient *http.Client
}

// NewHTTPTransport builds the HTTPS transport. caBundlePath points at the
// PEM bundle trusted for the TLS connection (the FINA combined CA file);
// empty means the system pool. The 60 s timeout is generous because CIS can
// take several seconds under load.
func NewHTTPTransport(serviceURL, caBundlePath string) (*HTTPTransport, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	if caBundlePath != "" {
		pemData, err := os.ReadFile(caBundlePath)
		if err != nil {
			return nil, fiskal.NewConfigurationError("CA bundle not found: %s", caBundlePath)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemData) {
			return nil, fiskal.NewConfigurationError("cannot load CA bundle from %s", caBundlePath)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}
	return &HTTPTransport{url: serviceURL, httpClient: client}, nil
}

// Invoke posts the envelope with the operation's SOAPAction. A non-2xx
// status is not an error here; the body may carry a decodable fault.
func (t *HTTPTransport) Invoke(ctx context.Context, operation string, envelope []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(envelope))
	if err != nil {
		return 0, nil, fmt.Errorf("cis: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapActionBase+operation)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("cis: HTTP call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("cis: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// ── Enveloped-signature interceptor ───────────────────────────────────────────

// EnvelopeInterceptor hooks the client around every remote call: Egress runs
// on the outbound envelope before send, Ingress on the inbound one after
// receive.
type EnvelopeInterceptor interface {
	Egress(operation string, envelope *etree.Document) error
	Ingress(operation string, envelope *etree.Document) error
}

// signatureInterceptor signs outbound and verifies inbound envelopes for
// every operation the predicate selects.
type signatureInterceptor struct {
	signer   *Signer
	verifier *Verifier
	requires func(operation string) bool
}

func (p *signatureInterceptor) Egress(operation string, envelope *etree.Document) error {
	if !p.requires(operation) {
		return nil
	}
	return p.signer.SignEnvelope(envelope)
}

func (p *signatureInterceptor) Ingress(operation string, envelope *etree.Document) error {
	if !p.requires(operation) {
		return nil
	}
	return p.verifier.VerifyEnvelope(envelope)
}

// ── Client ────────────────────────────────────────────────────────────────────

// Header carries the optional request header overrides. Zero values mean a
// fresh random message ID and the current time.
type Header struct {
	MessageID uuid.UUID
	Timestamp time.Time
}

// Client is the thin orchestration layer over the CIS operations: header
// construction, document serialization, signature interception, invocation
// and fault decoding. Retry policy belongs to the caller.
type Client struct {
	transport   Transport
	signer      *Signer
	interceptor EnvelopeInterceptor
	log         zerolog.Logger
}

// NewClient wires the client with its collaborators.
func NewClient(transport Transport, signer *Signer, verifier *Verifier, log zerolog.Logger) *Client {
	return &Client{
		transport: transport,
		signer:    signer,
		interceptor: &signatureInterceptor{
			signer:   signer,
			verifier: verifier,
			requires: RequiresSignature,
		},
		log: log,
	}
}

// Signer exposes the payload signer for offline ZKI computation.
func (c *Client) Signer() *Signer { return c.signer }

// Echo runs the unsigned echo self-test and fails when the service does not
// return the message verbatim.
func (c *Client) Echo(ctx context.Context, message string) error {
	reqEl := etree.NewElement("EchoZahtjev")
	reqEl.CreateAttr("xmlns", namespaceF73)
	reqEl.SetText(message)

	respEl, err := c.invoke(ctx, OpEcho, reqEl)
	if err != nil {
		return err
	}
	if got := respEl.Text(); got != message {
		return fmt.Errorf("cis: echo returned %q, expected %q", got, message)
	}
	return nil
}

// Submit fiscalizes an invoice and returns the assigned JIR.
func (c *Client) Submit(ctx context.Context, inv *fiskal.Invoice, hdr *Header) (string, error) {
	return c.submitDocument(ctx, OpSubmitInvoice, "RacunZahtjev", inv, hdr)
}

// SubmitWithDoc fiscalizes an invoice that references an accompanying
// supporting document and returns the assigned JIR.
func (c *Client) SubmitWithDoc(ctx context.Context, inv *fiskal.InvoiceWithDoc, hdr *Header) (string, error) {
	return c.submitDocument(ctx, OpSubmitInvoiceDoc, "RacunPDZahtjev", inv, hdr)
}

// Check submits the invoice to the verification operation. Available only
// on the demo endpoint.
func (c *Client) Check(ctx context.Context, inv *fiskal.Invoice, hdr *Header) error {
	body, err := inv.ToWireObject(c.signer)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, OpCheckInvoice, c.requestElement("ProvjeraZahtjev", hdr, body))
	return err
}

// ChangePaymentMethod reports a payment method change for a fiscalized
// invoice.
func (c *Client) ChangePaymentMethod(ctx context.Context, inv *fiskal.InvoicePaymentMethodChange, hdr *Header) error {
	body, err := inv.ToWireObject(c.signer)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, OpChangePaymentMethod, c.requestElement("PromijeniNacPlacZahtjev", hdr, body))
	return err
}

// SubmitDocument fiscalizes a supporting document and returns the assigned
// JIR.
func (c *Client) SubmitDocument(ctx context.Context, doc *fiskal.SupportingDocument, hdr *Header) (string, error) {
	return c.submitDocument(ctx, OpSubmitDocument, "PrateciDokumentiZahtjev", doc, hdr)
}

func (c *Client) submitDocument(ctx context.Context, operation, requestTag string, doc fiskal.Document, hdr *Header) (string, error) {
	body, err := doc.ToWireObject(c.signer)
	if err != nil {
		return "", err
	}
	respEl, err := c.invoke(ctx, operation, c.requestElement(requestTag, hdr, body))
	if err != nil {
		return "", err
	}
	jir := respEl.FindElement("./Jir")
	if jir == nil {
		return "", fiskal.NewResponseError(nil)
	}
	c.log.Info().Str("operation", operation).Str("jir", jir.Text()).Msg("document fiscalized")
	return jir.Text(), nil
}

// requestElement wraps the header and body into the namespaced request
// element (tns:...Zahtjev).
func (c *Client) requestElement(tag string, hdr *Header, body *etree.Element) *etree.Element {
	reqEl := etree.NewElement(tag)
	reqEl.CreateAttr("xmlns", namespaceF73)
	reqEl.AddChild(c.buildHeader(hdr))
	reqEl.AddChild(body)
	return reqEl
}

// buildHeader creates the Zaglavlje element: message ID and send timestamp,
// fresh unless overridden.
func (c *Client) buildHeader(hdr *Header) *etree.Element {
	id := uuid.New()
	ts := time.Now()
	if hdr != nil {
		if hdr.MessageID != uuid.Nil {
			id = hdr.MessageID
		}
		if !hdr.Timestamp.IsZero() {
			ts = hdr.Timestamp
		}
	}
	zaglavlje := etree.NewElement("Zaglavlje")
	idEl := zaglavlje.CreateElement("IdPoruke")
	idEl.SetText(id.String())
	dtEl := zaglavlje.CreateElement("DatumVrijeme")
	dtEl.SetText(ts.Format(fiskal.TimestampLayout))
	return zaglavlje
}

// invoke runs one operation: envelope build, egress interception, transport
// call, fault decoding, ingress interception. Returns the response element
// inside the Body.
func (c *Client) invoke(ctx context.Context, operation string, reqEl *etree.Element) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	envelope := doc.CreateElement("soapenv:Envelope")
	envelope.CreateAttr("xmlns:soapenv", namespaceSOAP)
	soapBody := envelope.CreateElement("soapenv:Body")
	soapBody.AddChild(reqEl)

	if err := c.interceptor.Egress(operation, doc); err != nil {
		return nil, err
	}

	payload, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("cis: serialize envelope: %w", err)
	}

	start := time.Now()
	status, respBody, err := c.transport.Invoke(ctx, operation, payload)
	if err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("operation", operation).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("service call completed")

	respDoc := etree.NewDocument()
	if err := respDoc.ReadFromBytes(respBody); err != nil {
		// Malformed fault payloads are normalized, never propagated as
		// parser errors.
		return nil, fiskal.NewResponseError(nil)
	}
	respEl := requestElement(respDoc)
	if respEl == nil {
		return nil, fiskal.NewResponseError(nil)
	}

	if respEl.Tag == "Fault" {
		return nil, decodeFault(respDoc)
	}
	if details := collectErrors(respEl); len(details) > 0 {
		return nil, fiskal.NewResponseError(details)
	}

	if err := c.interceptor.Ingress(operation, respDoc); err != nil {
		return nil, err
	}
	return respEl, nil
}

// decodeFault maps a SOAP fault into the structured error aggregate. The
// fault detail carries the same Greske list as a regular error response.
func decodeFault(doc *etree.Document) error {
	return fiskal.NewResponseError(collectErrors(doc.Root()))
}

// collectErrors gathers Greska entries under el and decodes them through
// the response-code catalog. The "no error" sentinel is filtered by the
// decoder, so a list containing only v100 comes back empty.
func collectErrors(el *etree.Element) []fiskal.ResponseErrorDetail {
	if el == nil {
		return nil
	}
	var raw []fiskal.RawError
	for _, greska := range el.FindElements(".//Greska") {
		entry := fiskal.RawError{}
		if code := greska.FindElement("./SifraGreske"); code != nil {
			entry.Code = code.Text()
		}
		if msg := greska.FindElement("./PorukaGreske"); msg != nil {
			entry.Message = msg.Text()
		}
		raw = append(raw, entry)
	}
	return fiskal.DecodeErrors(raw)
}
