// Request signing for the CIS web service: the raw-payload signature that
// yields the ZKI, and the enveloped XML-DSIG signature on outbound SOAP
// messages.

package cis

import (
	"crypto"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

var (
	errNotRSAKey         = errors.New("cis: private key is not RSA")
	errNoKeyBlock        = errors.New("cis: no private key block in PEM data")
	errNoResponseElement = errors.New("cis: no response element inside SOAP body")
)

// idAttribute is the reference identifier attribute on the signed request
// element, registered so the signature Reference can point at it.
const idAttribute = "Id"

// Signer holds the issuer's private key and certificate and produces both
// signature forms CIS requires. Stateless per call; safe for concurrent use.
type Signer struct {
	cert tls.Certificate
	key  *rsa.PrivateKey
}

// NewSigner loads the key and certificate from PEM files. keyPath may be
// empty for a combined certificate+key file; password decrypts a protected
// key. Construction fails with a ConfigurationError when either file is
// missing or unparsable, or the key cannot be decrypted.
func NewSigner(certPath, keyPath, password string) (*Signer, error) {
	cert, err := LoadFromPEM(certPath, keyPath, password)
	if err != nil {
		return nil, err
	}
	return newSigner(cert)
}

// NewSignerFromP12 loads the key and certificate from a PKCS#12 keystore.
func NewSignerFromP12(path, password string) (*Signer, error) {
	cert, err := LoadFromP12(path, password)
	if err != nil {
		return nil, err
	}
	return newSigner(cert)
}

func newSigner(cert tls.Certificate) (*Signer, error) {
	key, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fiskal.NewConfigurationError("signing key must be RSA")
	}
	return &Signer{cert: cert, key: key}, nil
}

// Certificate returns the loaded leaf certificate.
func (s *Signer) Certificate() *x509.Certificate { return s.cert.Leaf }

// SignZKIPayload signs a raw ZKI payload with the private key.
//
// The payload is signed with RSA PKCS#1 v1.5 over a SHA-1 digest, and the
// resulting signature (not the payload) is hashed with MD5; the hex form of
// that digest is the ZKI. The two-stage construction is what the server-side
// verifier expects and must not be altered.
//
// See section 12 "Zaštitni kod izdavatelja" of the technical specification.
func (s *Signer) SignZKIPayload(payload []byte) (string, error) {
	digest := sha1.Sum(payload)
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA1, digest[:])
	if err != nil {
		return "", err
	}
	code := md5.Sum(signature)
	return hex.EncodeToString(code[:]), nil
}

// SignEnvelope signs the request element inside the SOAP envelope in place:
// assigns it a fresh unique Id, appends an enveloped signature referencing
// that Id (exclusive C14N, SHA-1 digest, RSA-SHA1 signature) and fills
// KeyInfo with the certificate and its issuer and serial number.
func (s *Signer) SignEnvelope(doc *etree.Document) error {
	reqEl := requestElement(doc)
	if reqEl == nil {
		return fiskal.NewConfigurationError("unable to find request tag element")
	}
	reqEl.CreateAttr(idAttribute, uuid.NewString())

	ctx := dsig.NewDefaultSigningContext(dsig.TLSCertKeyStore(s.cert))
	ctx.Hash = crypto.SHA1
	ctx.IdAttribute = idAttribute
	ctx.Canonicalizer = dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList("")

	signed, err := ctx.SignEnveloped(reqEl)
	if err != nil {
		return fiskal.NewConfigurationError("signing request element %s: %v", reqEl.Tag, err)
	}
	s.addIssuerSerial(signed)

	parent := reqEl.Parent()
	index := reqEl.Index()
	parent.RemoveChild(reqEl)
	parent.InsertChildAt(index, signed)
	return nil
}

// addIssuerSerial extends KeyInfo/X509Data with the X509IssuerSerial block.
// KeyInfo sits outside SignedInfo, so this does not disturb the signature.
func (s *Signer) addIssuerSerial(signed *etree.Element) {
	x509Data := signed.FindElement("./Signature/KeyInfo/X509Data")
	if x509Data == nil || s.cert.Leaf == nil {
		return
	}
	issuerSerial := etree.NewElement("X509IssuerSerial")
	issuerSerial.Space = x509Data.Space
	name := issuerSerial.CreateElement("X509IssuerName")
	name.Space = x509Data.Space
	name.SetText(s.cert.Leaf.Issuer.String())
	serial := issuerSerial.CreateElement("X509SerialNumber")
	serial.Space = x509Data.Space
	serial.SetText(s.cert.Leaf.SerialNumber.String())
	x509Data.InsertChildAt(0, issuerSerial)
}

// requestElement locates the single application-data element inside the
// SOAP Body.
func requestElement(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	for _, child := range root.ChildElements() {
		if child.Tag != "Body" {
			continue
		}
		for _, el := range child.ChildElements() {
			return el
		}
	}
	return nil
}
