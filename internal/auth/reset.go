package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ResetToken is a freshly generated password-reset token. Raw is handed to
// the user exactly once through the email channel; only Hash and Exp are
// persisted. Issuing a new token for a user overwrites any previous one.
type ResetToken struct {
	Raw  string    // 64 hex chars from 32 random bytes, never stored
	Hash string    // SHA-256 hex digest of Raw
	Exp  time.Time // UTC instant after which the token is unusable
}

// NewResetToken generates a cryptographically random reset token valid for
// the given window.
func NewResetToken(ttl time.Duration) (ResetToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, err
	}
	raw := hex.EncodeToString(buf)
	return ResetToken{
		Raw:  raw,
		Hash: HashResetToken(raw),
		Exp:  time.Now().UTC().Add(ttl),
	}, nil
}
