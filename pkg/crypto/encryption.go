package crypto

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"
	// Keeper backends are opt-in; import the driver you deploy with:
	//  _ "gocloud.dev/secrets/awskms"
	//  _ "gocloud.dev/secrets/gcpkms"
	//  _ "gocloud.dev/secrets/azurekeyvault"
	//  _ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets" // base64key:// for dev and tests
)

// Encrypter encrypts secrets that must be recoverable, such as TOTP seeds.
// Passwords are never encrypted, only hashed; encryption is reserved for
// values the server has to read back.
type Encrypter struct {
	keeper *secrets.Keeper
}

// NewEncrypter opens a Go Cloud secrets keeper by URL.
//
//	base64key://<43-char-urlsafe-base64>   local AES keeper for dev and tests
//	awskms://..., gcpkms://..., hashivault://...   production KMS backends
func NewEncrypter(ctx context.Context, keeperURL string) (*Encrypter, error) {
	if keeperURL == "" {
		return nil, fmt.Errorf("keeper URL is required")
	}
	keeper, err := secrets.OpenKeeper(ctx, keeperURL)
	if err != nil {
		return nil, fmt.Errorf("opening secrets keeper: %w", err)
	}
	return &Encrypter{keeper: keeper}, nil
}

// EncryptString encrypts plaintext and returns it base64-encoded for
// embedding in event payloads.
func (e *Encrypter) EncryptString(ctx context.Context, plaintext string) (string, error) {
	ciphertext, err := e.keeper.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("encrypting secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString.
func (e *Encrypter) DecryptString(ctx context.Context, encoded string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	plaintext, err := e.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypting secret: %w", err)
	}
	return string(plaintext), nil
}

func (e *Encrypter) Close() error {
	return e.keeper.Close()
}
