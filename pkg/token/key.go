// Package token implements provider-token authentication for APNs.
//
// A Signer turns a .p8 signing key into ES256 provider tokens, and a Source
// caches the most recent token so that concurrent senders share one signature
// per refresh cycle, the way Apple expects providers to behave.
package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrAuthKeyNotPEM is returned when the signing key bytes do not contain
	// a PEM block. Apple distributes signing keys as PKCS#8 .p8 files.
	ErrAuthKeyNotPEM = errors.New("token: auth key is not valid PEM")

	// ErrAuthKeyNotECDSAP256 is returned when the parsed key is not an ECDSA
	// key on the P-256 curve, the only algorithm APNs accepts for ES256.
	ErrAuthKeyNotECDSAP256 = errors.New("token: auth key is not an ECDSA P-256 key")
)

// AuthKeyFromFile loads an APNs signing key from a PKCS#8 PEM file, the .p8
// file downloaded from the Apple developer account.
func AuthKeyFromFile(filename string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth key file: %w", err)
	}
	return AuthKeyFromBytes(data)
}

// AuthKeyFromBytes parses an APNs signing key from PKCS#8 PEM bytes.
func AuthKeyFromBytes(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrAuthKeyNotPEM
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse auth key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok || key.Curve != elliptic.P256() {
		return nil, ErrAuthKeyNotECDSAP256
	}
	return key, nil
}
