package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// vaultKeyInfo namespaces the derived key so the same application secret
// can safely derive keys for other purposes later.
const vaultKeyInfo = "tradewind/session-store/v1"

// vault encrypts serialized sessions before they reach the store. Provider
// tokens grant full account access, so they are never written to Redis in
// the clear.
type vault struct {
	aead cipher.AEAD
}

// newVault derives a 32-byte AES-256 key from the application secret via
// HKDF-SHA256 and prepares the GCM cipher once for reuse.
func newVault(secret string) (*vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault secret must not be empty")
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(vaultKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("deriving vault key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &vault{aead: aead}, nil
}

// seal encrypts plaintext using AES-256-GCM. The nonce is prepended to the
// ciphertext so open can extract it: [nonce][ciphertext+tag].
func (v *vault) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal. Fails if the ciphertext was tampered with or was
// sealed under a different secret.
func (v *vault) open(ciphertext []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ct := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}
