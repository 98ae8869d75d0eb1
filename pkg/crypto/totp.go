package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	totpPeriod = 30 * time.Second
	totpDigits = 6

	// totpSkewSteps accepts one step of clock drift in either direction.
	totpSkewSteps = 1
)

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTOTPSecret returns a new base32-encoded TOTP seed.
func GenerateTOTPSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	return totpEncoding.EncodeToString(raw), nil
}

// TOTPCode returns the 6-digit code of the seed at time now.
func TOTPCode(base32Secret string, now time.Time) (string, error) {
	key, err := totpEncoding.DecodeString(base32Secret)
	if err != nil {
		return "", fmt.Errorf("decoding totp secret: %w", err)
	}
	return hotp(key, uint64(now.Unix()/int64(totpPeriod/time.Second))), nil
}

// VerifyTOTP checks a 6-digit code against the base32 seed at time now,
// tolerating one 30-second step of drift (RFC 6238).
func VerifyTOTP(base32Secret, code string, now time.Time) (bool, error) {
	key, err := totpEncoding.DecodeString(base32Secret)
	if err != nil {
		return false, fmt.Errorf("decoding totp secret: %w", err)
	}

	step := now.Unix() / int64(totpPeriod/time.Second)
	for offset := int64(-totpSkewSteps); offset <= totpSkewSteps; offset++ {
		expected := hotp(key, uint64(step+offset))
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// hotp computes the truncated HMAC-SHA1 code of RFC 4226.
func hotp(key []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%0*d", totpDigits, value%1_000_000)
}
