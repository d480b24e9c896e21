// Package gateway implements the symmetric payload encryption shared by the
// API server and its clients.
//
// Wire format: base64(iv || aes256cfb(key, iv, plaintext)) with
// key = sha256(secret) and a fresh random 16 byte iv per message.
package gateway

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// HeaderEncrypted marks a request or response body as encrypted.
const HeaderEncrypted = "X-Encrypted"

// ErrDecryptionFailed wraps every decryption failure.
var ErrDecryptionFailed = errors.New("gateway: decryption failed")

// IsDecryptionFailed reports whether err came from Decrypt.
func IsDecryptionFailed(err error) bool { return errors.Is(err, ErrDecryptionFailed) }

// Cipher encrypts and decrypts message bodies. A nil or disabled Cipher is
// the identity in both directions.
type Cipher struct {
	enabled bool
	key     [32]byte
	rand    io.Reader
}

// NewCipher derives the key from secret. The derivation is deterministic so
// every process sharing the secret interoperates.
func NewCipher(enabled bool, secret string) *Cipher {
	return &Cipher{enabled: enabled, key: sha256.Sum256([]byte(secret)), rand: rand.Reader}
}

// Enabled reports whether payloads are transformed.
func (c *Cipher) Enabled() bool { return c != nil && c.enabled }

// Encrypt returns the base64 text of iv||ciphertext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if !c.Enabled() {
		return plaintext, nil
	}
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("gateway: new cipher: %w", err)
	}
	raw := make([]byte, aes.BlockSize+len(plaintext))
	iv := raw[:aes.BlockSize]
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return nil, fmt.Errorf("gateway: read iv: %w", err)
	}
	// CFB keeps the format readable by existing workers.
	cipher.NewCFBEncrypter(block, iv).XORKeyStream(raw[aes.BlockSize:], plaintext)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// Decrypt reverses Encrypt. Any malformed input yields ErrDecryptionFailed.
func (c *Cipher) Decrypt(body []byte) ([]byte, error) {
	if !c.Enabled() {
		return body, nil
	}
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(raw, bytes.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecryptionFailed, err)
	}
	raw = raw[:n]
	if len(raw) < aes.BlockSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	iv, ct := raw[:aes.BlockSize], raw[aes.BlockSize:]
	out := make([]byte, len(ct))
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(out, ct)
	return out, nil
}
