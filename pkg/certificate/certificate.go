// Package certificate loads APNs provider certificates for the
// certificate-identity client. Loading happens once at startup; the rest of
// the library only ever sees the resulting tls.Certificate.
package certificate

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"
)

var (
	// ErrExpired is returned when the certificate's validity window has
	// passed. APNs closes connections authenticated with expired
	// certificates, so failing at load time saves a confusing handshake
	// error later.
	ErrExpired = errors.New("certificate: expired")

	// ErrNoPrivateKey is returned when the PEM input has no private key block.
	ErrNoPrivateKey = errors.New("certificate: no private key found")

	// ErrNoCertificate is returned when the PEM input has no certificate block.
	ErrNoCertificate = errors.New("certificate: no certificate found")

	// ErrEncryptedPEM is returned for legacy password-encrypted PEM blocks,
	// which this loader does not support. Convert the identity to .p12 or
	// strip the passphrase.
	ErrEncryptedPEM = errors.New("certificate: encrypted PEM blocks are not supported")

	// ErrNoTopic is returned when no push topic can be derived from the
	// certificate subject.
	ErrNoTopic = errors.New("certificate: no push topic in subject")
)

// FromP12File loads a PKCS#12 identity exported from Keychain Access.
func FromP12File(filename, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certificate: failed to read p12 file: %w", err)
	}
	return FromP12Bytes(data, password)
}

// FromP12Bytes decodes a PKCS#12 identity.
func FromP12Bytes(data []byte, password string) (tls.Certificate, error) {
	key, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certificate: failed to decode p12: %w", err)
	}
	return assemble(cert, key)
}

// FromPemFile loads a PEM file carrying both the certificate and its
// unencrypted private key.
func FromPemFile(filename string) (tls.Certificate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certificate: failed to read pem file: %w", err)
	}
	return FromPemBytes(data)
}

// FromPemBytes decodes concatenated PEM blocks: one CERTIFICATE plus one
// private key in PKCS#1, SEC 1 or PKCS#8 form.
func FromPemBytes(data []byte) (tls.Certificate, error) {
	var (
		cert *x509.Certificate
		key  any
	)
	for {
		block, rest := pem.Decode(data)
		if block == nil {
			break
		}
		data = rest
		if _, encrypted := block.Headers["DEK-Info"]; encrypted {
			return tls.Certificate{}, ErrEncryptedPEM
		}
		switch block.Type {
		case "CERTIFICATE":
			parsed, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("certificate: failed to parse certificate: %w", err)
			}
			cert = parsed
		case "RSA PRIVATE KEY":
			parsed, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("certificate: failed to parse rsa key: %w", err)
			}
			key = parsed
		case "EC PRIVATE KEY":
			parsed, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("certificate: failed to parse ec key: %w", err)
			}
			key = parsed
		case "PRIVATE KEY":
			parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("certificate: failed to parse pkcs8 key: %w", err)
			}
			key = parsed
		}
	}
	if cert == nil {
		return tls.Certificate{}, ErrNoCertificate
	}
	if key == nil {
		return tls.Certificate{}, ErrNoPrivateKey
	}
	return assemble(cert, key)
}

func assemble(cert *x509.Certificate, key any) (tls.Certificate, error) {
	if time.Now().After(cert.NotAfter) {
		return tls.Certificate{}, ErrExpired
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

// oidUID is the X.500 userID attribute. Apple stores the push topic (the
// app bundle id) there in provider certificate subjects.
var oidUID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

// TopicFromCertificate extracts the push topic from the certificate
// subject, the value certificate-mode senders put in the apns-topic header
// when the certificate covers a single app.
func TopicFromCertificate(cert tls.Certificate) (string, error) {
	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return "", ErrNoCertificate
		}
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return "", fmt.Errorf("certificate: failed to parse leaf: %w", err)
		}
		leaf = parsed
	}
	for _, name := range leaf.Subject.Names {
		if name.Type.Equal(oidUID) {
			if topic, ok := name.Value.(string); ok && topic != "" {
				return topic, nil
			}
		}
	}
	return "", ErrNoTopic
}
