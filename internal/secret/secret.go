// Package secret decrypts stored endpoint credentials. Values are encrypted
// with AES-256-GCM and stored as base64(nonce||ciphertext) behind an
// "encrypted:" prefix; anything without the prefix passes through untouched.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// Prefix marks a stored value as encrypted.
const Prefix = "encrypted:"

// Codec encrypts and decrypts credential strings with a deployment key.
type Codec struct {
	key [32]byte
}

// NewCodec derives a fixed-size key from the configured passphrase.
func NewCodec(passphrase string) (*Codec, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("empty encryption key")
	}
	return &Codec{key: sha256.Sum256([]byte(passphrase))}, nil
}

// Encrypt seals plaintext and returns a prefixed, base64-encoded value.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a stored value. Unprefixed values are returned as-is so
// plaintext credentials in development configs keep working.
func (c *Codec) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, Prefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", fmt.Errorf("credential too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt credential: %w", err)
	}
	return string(plain), nil
}
