package token

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrBadKeyID is returned when the key id is not the 10-character
	// identifier shown next to the signing key in the developer account.
	ErrBadKeyID = errors.New("token: key id must be 10 characters")

	// ErrBadTeamID is returned when the team id is not the 10-character
	// identifier from the developer account membership page.
	ErrBadTeamID = errors.New("token: team id must be 10 characters")

	// ErrNoAuthKey is returned when the signer is constructed without a key.
	ErrNoAuthKey = errors.New("token: auth key is required")
)

// Signer mints ES256 provider tokens for one signing key. It holds no cache
// and is safe for concurrent use; wrap it in a Source to reuse signatures.
type Signer struct {
	key    *ecdsa.PrivateKey
	keyID  string
	teamID string
}

// NewSigner validates the key material and identifiers up front so that a bad
// key fails client construction rather than the first send.
func NewSigner(key *ecdsa.PrivateKey, keyID, teamID string) (*Signer, error) {
	if key == nil {
		return nil, ErrNoAuthKey
	}
	if len(keyID) != 10 {
		return nil, ErrBadKeyID
	}
	if len(teamID) != 10 {
		return nil, ErrBadTeamID
	}
	return &Signer{key: key, keyID: keyID, teamID: teamID}, nil
}

// KeyID returns the signing key identifier carried in the token header.
func (s *Signer) KeyID() string { return s.keyID }

// TeamID returns the issuer carried in the token claims.
func (s *Signer) TeamID() string { return s.teamID }

// Sign produces a compact JWT with the kid header and iss/iat claims APNs
// requires. The signature itself is randomized, so two tokens minted for the
// same instant still differ byte-for-byte.
func (s *Signer) Sign(issuedAt time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": s.teamID,
		"iat": issuedAt.Unix(),
	})
	t.Header["kid"] = s.keyID
	bearer, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign provider token: %w", err)
	}
	return bearer, nil
}
