// Package token signs and verifies the compact session tokens carried in
// the Authorization header. Tokens are stateless HS256 JWTs binding a user
// identifier to an issuance time and a configured time-to-live.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors. The codec always runs the signature check before any
// claim is examined, so an Expired result still means the token was issued
// by this process.
var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

// Claims is the verified content of a session token.
type Claims struct {
	UserID   uint64
	IssuedAt time.Time
}

// Codec issues and verifies session tokens. The signing secret and TTL are
// fixed at construction and never change for the life of the process.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for userID with sub, iat and exp claims.
func (c *Codec) Issue(userID uint64) (string, error) {
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})
	return t.SignedString(c.secret)
}

// Verify parses and validates raw, returning its claims. It fails with
// ErrInvalidSignature on tampering, ErrExpired past the TTL and ErrMalformed
// when the input is not decodable or its claims are unusable.
func (c *Codec) Verify(raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &rc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		default:
			return Claims{}, ErrMalformed
		}
	}
	if !tok.Valid {
		return Claims{}, ErrMalformed
	}

	// Only trust claims after the signature check above succeeded.
	uid, err := strconv.ParseUint(rc.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Claims{}, ErrMalformed
	}
	if rc.IssuedAt == nil {
		return Claims{}, ErrMalformed
	}
	return Claims{UserID: uid, IssuedAt: rc.IssuedAt.Time}, nil
}
