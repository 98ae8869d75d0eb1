package crypto_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/crypto"
)

func TestHashAndVerify(t *testing.T) {
	hasher := crypto.NewHasher(crypto.WithCost(crypto.MinCost)) // keep tests fast

	hashed, err := hasher.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hashed)

	assert.NoError(t, hasher.Verify(hashed, "correct horse battery staple"))
	assert.ErrorIs(t, hasher.Verify(hashed, "wrong"), crypto.ErrPasswordMismatch)
	assert.ErrorIs(t, hasher.Verify("", "anything"), crypto.ErrPasswordMismatch)
}

func TestHashRejectsBadInput(t *testing.T) {
	hasher := crypto.NewHasher(crypto.WithCost(crypto.MinCost))

	_, err := hasher.Hash("")
	assert.True(t, apperror.IsInvalidArgument(err))

	_, err = hasher.Hash(strings.Repeat("x", crypto.MaxPasswordLength+1))
	assert.True(t, apperror.IsInvalidArgument(err))
}

func TestValidateStrength(t *testing.T) {
	hasher := crypto.NewHasher()

	assert.Error(t, hasher.ValidateStrength("short"))
	assert.Error(t, hasher.ValidateStrength("aaaaaaaaaaaa"))
	assert.NoError(t, hasher.ValidateStrength("quiet-Ocean-41-Lantern"))
}

func TestGenerateSecret(t *testing.T) {
	a, err := crypto.GenerateSecret(32)
	require.NoError(t, err)
	b, err := crypto.GenerateSecret(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}

func TestEncrypterRoundTrip(t *testing.T) {
	ctx := context.Background()
	// Fixed local key, test only.
	enc, err := crypto.NewEncrypter(ctx, "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4=")
	require.NoError(t, err)
	defer enc.Close()

	ciphertext, err := enc.EncryptString(ctx, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotEqual(t, "JBSWY3DPEHPK3PXP", ciphertext)

	plaintext, err := enc.DecryptString(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plaintext)
}

func TestTOTPURI(t *testing.T) {
	uri := crypto.TOTPURI("Identra", "john@acme.example", "JBSWY3DPEHPK3PXP")

	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/Identra:john%40acme.example?"))
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "issuer=Identra")
}
