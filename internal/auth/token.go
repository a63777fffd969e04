// Package auth reads the claims of bearer tokens on the client side.
//
// Tokens are decoded without signature verification: the issuing server is the
// only party that checks signatures, the client only needs the subject and the
// expiry to decide whether a refresh is due.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/NordCoder/exsplit/internal/domain/auth"
)

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode parses raw into a Token. Any failure wraps domainauth.ErrDecode.
func Decode(raw string) (domainauth.Token, error) {
	if raw == "" {
		return domainauth.Token{}, fmt.Errorf("%w: empty", domainauth.ErrDecode)
	}
	var claims jwt.RegisteredClaims
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		return domainauth.Token{}, fmt.Errorf("%w: %v", domainauth.ErrDecode, err)
	}
	if claims.ExpiresAt == nil {
		return domainauth.Token{}, fmt.Errorf("%w: missing exp", domainauth.ErrDecode)
	}
	return domainauth.Token{
		Raw:       raw,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// Issue signs an HS256 token with the given subject and lifetime.
func Issue(subject string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
