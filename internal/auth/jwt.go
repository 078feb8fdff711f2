// Package auth reads and issues the JWT access tokens used by the bagger API.
//
// The client never holds the signing secret, so Inspect parses claims without
// verifying the signature. It is only used to skip a round trip when a stored
// token has already expired; the server remains the authority.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("auth: token is not a JWT")

// TokenInfo is what the client can learn from an access token on its own.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero when the token has no exp claim
}

// Expired reports whether the token carries an exp claim that is not after now.
func (i TokenInfo) Expired(now time.Time) bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// UserID returns the subject as a numeric user id, if it is one.
func (i TokenInfo) UserID() (int64, bool) {
	id, err := strconv.ParseInt(i.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Inspect parses token claims without verifying the signature.
// Opaque (non-JWT) tokens return ErrNotJWT.
func Inspect(token string) (TokenInfo, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %w", ErrNotJWT, err)
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Signer issues and validates HS256 access tokens. The bagger backend owns
// the real one; this is used by the in-process test backend.
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner creates a Signer with the given secret.
func NewSigner(secret, issuer string) (*Signer, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &Signer{secret: []byte(secret), issuer: issuer}, nil
}

// Generate signs a token for userID that expires after ttl from now.
func (s *Signer) Generate(userID int64, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, issuer and expiry and returns the user id.
func (s *Signer) Validate(token string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("auth: invalid subject %q", claims.Subject)
	}
	return id, nil
}
