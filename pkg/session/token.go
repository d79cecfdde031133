package session

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

var ErrorInvalidToken = errors.New("invalid session token")

// Signer issues and checks ES256 session tokens whose subject is a user id.
type Signer struct {
	keyID      string
	privateKey *ecdsa.PrivateKey
	ttl        time.Duration
	now        func() time.Time
}

func NewSigner(keyID string, privateKey *ecdsa.PrivateKey, ttl time.Duration, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{keyID, privateKey, ttl, now}
}

func (s *Signer) KeyID() string {
	return s.keyID
}

func (s *Signer) PublicKey() *ecdsa.PublicKey {
	return &s.privateKey.PublicKey
}

func (s *Signer) Issue(subject string) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.StandardClaims{
		Subject:   subject,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: expiresAt.Unix(),
	})
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the subject of a token this signer issued and that has not
// yet expired.
func (s *Signer) Verify(raw string) (string, error) {
	claims := &jwt.StandardClaims{}
	parser := &jwt.Parser{ValidMethods: []string{jwt.SigningMethodES256.Alg()}, SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if kid, _ := token.Header["kid"].(string); kid != s.keyID {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return &s.privateKey.PublicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrorInvalidToken, err)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return "", fmt.Errorf("%w: expired", ErrorInvalidToken)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrorInvalidToken)
	}
	return claims.Subject, nil
}
