package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkcs8PEM(t *testing.T, key any) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestAuthKeyFromBytes(t *testing.T) {
	t.Run("valid p8 key", func(t *testing.T) {
		key, err := AuthKeyFromBytes([]byte(testAuthKey))
		require.NoError(t, err)
		assert.Equal(t, elliptic.P256(), key.Curve)
	})

	t.Run("not pem", func(t *testing.T) {
		_, err := AuthKeyFromBytes([]byte("definitely not a key"))
		assert.ErrorIs(t, err, ErrAuthKeyNotPEM)
	})

	t.Run("garbage inside pem block", func(t *testing.T) {
		block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{0x01, 0x02}})
		_, err := AuthKeyFromBytes(block)
		assert.Error(t, err)
	})

	t.Run("rsa key rejected", func(t *testing.T) {
		rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = AuthKeyFromBytes(pkcs8PEM(t, rsaKey))
		assert.ErrorIs(t, err, ErrAuthKeyNotECDSAP256)
	})

	t.Run("wrong curve rejected", func(t *testing.T) {
		p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
		require.NoError(t, err)
		_, err = AuthKeyFromBytes(pkcs8PEM(t, p384))
		assert.ErrorIs(t, err, ErrAuthKeyNotECDSAP256)
	})
}

func TestAuthKeyFromFile(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "authkey.p8")
		require.NoError(t, os.WriteFile(path, []byte(testAuthKey), 0o600))

		key, err := AuthKeyFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, elliptic.P256(), key.Curve)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := AuthKeyFromFile(filepath.Join(t.TempDir(), "nope.p8"))
		assert.Error(t, err)
	})
}
