package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	c := NewCodec("super-secret", time.Hour)
	raw, err := c.Issue(42)
	require.NoError(t, err)

	claims, err := c.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.WithinDuration(t, time.Now().UTC(), claims.IssuedAt, 5*time.Second)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	c := NewCodec("super-secret", -time.Minute)
	raw, err := c.Issue(7)
	require.NoError(t, err)

	_, err = c.Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_TamperedSignature(t *testing.T) {
	t.Parallel()

	c := NewCodec("super-secret", time.Hour)
	raw, err := c.Issue(7)
	require.NoError(t, err)

	// Flip one byte in the signature segment.
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = c.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	raw, err := NewCodec("right-secret", time.Hour).Issue(7)
	require.NoError(t, err)

	_, err = NewCodec("wrong-secret", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c := NewCodec("k", time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "garbage"} {
		_, err := c.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerify_NonNumericSubject(t *testing.T) {
	t.Parallel()

	// A token signed with the right key but carrying an unusable subject
	// must still be rejected.
	now := time.Now().UTC()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-number",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("super-secret"))
	require.NoError(t, err)

	_, err = NewCodec("super-secret", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, ErrMalformed)
}
