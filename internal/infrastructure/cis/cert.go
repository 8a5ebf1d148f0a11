// Certificate and key loading for the CIS web service: FINA-issued material
// arrives either as a .p12 keystore or as PEM files (separate cert/key pair,
// or a combined file, with the key optionally encrypted).

package cis

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// LoadFromPEM loads a certificate and RSA private key from PEM files. When
// keyPath is empty the certificate file is expected to also carry the key
// (combined file). password decrypts a protected key; empty for plaintext.
func LoadFromPEM(certPath, keyPath, password string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, fiskal.NewConfigurationError("signing certificate not found: %s", certPath)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return tls.Certificate{}, fiskal.NewConfigurationError("signing key not found: %s", keyPath)
	}

	certs, err := parseCertificates(certPEM)
	if err != nil || len(certs) == 0 {
		return tls.Certificate{}, fiskal.NewConfigurationError("cannot load signing certificate from %s", certPath)
	}
	key, err := parsePrivateKey(keyPEM, password)
	if err != nil {
		return tls.Certificate{}, fiskal.NewConfigurationError("cannot load signing key from %s: %v", keyPath, err)
	}

	raw := make([][]byte, len(certs))
	for i, c := range certs {
		raw[i] = c.Raw
	}
	return tls.Certificate{Certificate: raw, PrivateKey: key, Leaf: certs[0]}, nil
}

// LoadFromP12 loads the certificate and key from a PKCS#12 keystore.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fiskal.NewConfigurationError("signing keystore not found: %s", path)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fiskal.NewConfigurationError("cannot decode keystore %s: %v", path, err)
	}
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return tls.Certificate{}, fiskal.NewConfigurationError("keystore %s does not contain an RSA key", path)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

// loadCertFile reads every CERTIFICATE block from a PEM file. Used for the
// service certificate and CA material on the verification side.
func loadCertFile(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fiskal.NewConfigurationError("certificate file not found: %s", path)
	}
	certs, err := parseCertificates(data)
	if err != nil || len(certs) == 0 {
		return nil, fiskal.NewConfigurationError("cannot load certificates from %s", path)
	}
	return certs, nil
}

func parseCertificates(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for rest := pemData; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

func parsePrivateKey(pemData []byte, password string) (*rsa.PrivateKey, error) {
	for rest := pemData; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "RSA PRIVATE KEY", "PRIVATE KEY", "ENCRYPTED PRIVATE KEY":
		default:
			continue
		}

		der := block.Bytes
		if x509.IsEncryptedPEMBlock(block) {
			decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
			if err != nil {
				return nil, err
			}
			der = decrypted
		}

		if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
			return key, nil
		}
		parsed, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errNotRSAKey
		}
		return key, nil
	}
	return nil, errNoKeyBlock
}
