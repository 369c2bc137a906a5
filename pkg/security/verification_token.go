package security

import (
	"bitwise74/account-api/internal/model"
	"crypto/rand"
	"encoding/hex"
	"time"
)

const (
	// VerificationTokenBytes is the amount of random bytes in a verification
	// token. The hex encoded form is twice as long.
	VerificationTokenBytes = 32
	VerificationTokenTTL   = 24 * time.Hour
)

// GenerateToken returns n random bytes from the OS CSPRNG, hex encoded.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)

	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// MakeVerificationToken mints a fresh email verification secret valid for
// VerificationTokenTTL after now.
func MakeVerificationToken(now time.Time) (model.Verification, error) {
	token, err := GenerateToken(VerificationTokenBytes)
	if err != nil {
		return model.Verification{}, err
	}

	return model.Verification{
		Token:     token,
		ExpiresAt: now.Add(VerificationTokenTTL),
	}, nil
}
