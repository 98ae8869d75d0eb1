package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// GenerateSecret returns a URL-safe random secret of byteLen random bytes,
// base64-encoded. Used for OIDC client secrets, auth codes, and challenges.
func GenerateSecret(byteLen int) (string, error) {
	if byteLen <= 0 {
		byteLen = 32
	}
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("reading entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TOTPURI renders the otpauth provisioning URI for a TOTP secret. The
// secret must already be base32-encoded. The URI is returned to the caller
// exactly once; only the encrypted seed is persisted.
func TOTPURI(issuer, accountName, base32Secret string) string {
	label := escapeLabelPart(issuer) + ":" + escapeLabelPart(accountName)
	q := url.Values{}
	q.Set("secret", base32Secret)
	q.Set("issuer", issuer)
	return "otpauth://totp/" + label + "?" + q.Encode()
}

// escapeLabelPart percent-encodes a label component. PathEscape leaves
// '@' and ':' alone, but both are ambiguous inside the otpauth label.
func escapeLabelPart(s string) string {
	s = url.PathEscape(s)
	s = strings.ReplaceAll(s, "@", "%40")
	return strings.ReplaceAll(s, ":", "%3A")
}
