// Response verification: inbound envelopes carry an enveloped signature
// produced by the CIS service, checked against a trusted certificate set
// before any business data is trusted.

package cis

import (
	"crypto/x509"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// Verifier holds the trust anchors for inbound envelope verification: the
// CIS service certificate plus any additional CA certificates. Stateless per
// call; safe for concurrent use.
type Verifier struct {
	roots []*x509.Certificate
}

// NewVerifier loads the service certificate and the optional CA
// certificates. Construction fails with a ConfigurationError when any file
// is missing or unparsable.
func NewVerifier(serviceCertPath string, caCertPaths []string) (*Verifier, error) {
	roots, err := loadCertFile(serviceCertPath)
	if err != nil {
		return nil, err
	}
	for _, caPath := range caCertPaths {
		caCerts, err := loadCertFile(caPath)
		if err != nil {
			return nil, err
		}
		roots = append(roots, caCerts...)
	}
	return &Verifier{roots: roots}, nil
}

// VerifyEnvelope checks the enveloped signature on the response: the digest
// of the referenced subtree, the signature over SignedInfo, and that the
// signing certificate is trusted. Any mismatch is a SignatureError naming
// the signed element; it must be treated as a trust failure.
func (v *Verifier) VerifyEnvelope(doc *etree.Document) error {
	respEl := requestElement(doc)
	if respEl == nil {
		return &fiskal.SignatureError{Element: "Body", Cause: errNoResponseElement}
	}

	ctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{Roots: v.roots})
	ctx.IdAttribute = idAttribute

	if _, err := ctx.Validate(respEl); err != nil {
		return &fiskal.SignatureError{Element: respEl.Tag, Cause: err}
	}
	return nil
}
