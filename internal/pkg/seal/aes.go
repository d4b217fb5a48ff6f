package seal

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
)

// Sealed payload layout:
//
//	[0..3]   magic "APS1"
//	[4..15]  12-byte nonce
//	[16..]   gcm.Seal output (ciphertext + tag)
var magic = []byte("APS1")

const (
	gcmNonceSize = 12
	aesKeyLen    = 32
)

var (
	// ErrNotConfigured indicates a missing key provider.
	ErrNotConfigured = errors.New("seal: not configured")
	// ErrPlaintextEmpty indicates an empty plaintext input.
	ErrPlaintextEmpty = errors.New("seal: plaintext is empty")
	// ErrInvalidKeyLength indicates the key length is invalid.
	ErrInvalidKeyLength = errors.New("seal: invalid key length")
	// ErrNotSealed indicates the payload lacks the sealed header.
	ErrNotSealed = errors.New("seal: payload is not sealed")
	// ErrKeyRequired indicates a sealed payload was opened without a key.
	ErrKeyRequired = errors.New("seal: payload is sealed, key required")
	// ErrOpenFailed indicates authentication or decryption failure.
	ErrOpenFailed = errors.New("seal: open failed")
	// ErrMissingStaticKey indicates a missing static key.
	ErrMissingStaticKey = errors.New("seal: missing static key")
)

// IsSealed reports whether payload carries the sealed header.
func IsSealed(payload []byte) bool {
	return len(payload) >= len(magic)+gcmNonceSize && bytes.Equal(payload[:len(magic)], magic)
}

// AESGCM implements Sealer using AES-256-GCM.
type AESGCM struct {
	keys KeyProvider
}

// NewAESGCM constructs an AES-GCM sealer.
func NewAESGCM(keys KeyProvider) *AESGCM {
	return &AESGCM{keys: keys}
}

func (e *AESGCM) aead(scope Scope) (cipher.AEAD, error) {
	if e == nil || e.keys == nil {
		return nil, ErrNotConfigured
	}

	key, err := e.keys.Key(scope)
	if err != nil {
		return nil, fmt.Errorf("seal: key provider error: %w", err)
	}
	if len(key) != aesKeyLen {
		return nil, fmt.Errorf("seal: key is %d bytes, want %d: %w", len(key), aesKeyLen, ErrInvalidKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("seal: aes init failed: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, gcmNonceSize)
}

// Seal encrypts plaintext and binds it to scope.
func (e *AESGCM) Seal(plaintext []byte, scope Scope) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrPlaintextEmpty
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(magic)+gcmNonceSize, len(magic)+gcmNonceSize+len(plaintext)+gcm.Overhead())
	copy(out, magic)
	nonce := out[len(magic):]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("seal: nonce generation failed: %w", err)
	}

	return gcm.Seal(out, nonce, plaintext, scopeAAD(scope)), nil
}

// Open decrypts ciphertext sealed for the same scope.
func (e *AESGCM) Open(ciphertext []byte, scope Scope) ([]byte, error) {
	if !IsSealed(ciphertext) {
		return nil, ErrNotSealed
	}

	gcm, err := e.aead(scope)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[len(magic) : len(magic)+gcmNonceSize]
	plain, err := gcm.Open(nil, nonce, ciphertext[len(magic)+gcmNonceSize:], scopeAAD(scope))
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plain, nil
}

// scopeAAD hashes a labelled canonical form so the AAD has a fixed length
// and no separator ambiguity.
func scopeAAD(s Scope) []byte {
	canonical := fmt.Sprintf("target=%s\npurpose=%s\n", s.Target, s.Purpose)
	sum := sha256.Sum256([]byte(canonical))
	return sum[:]
}

// StaticKeyProvider returns the same key for every scope.
type StaticKeyProvider struct {
	KeyBytes []byte
}

// Key returns a copy of the static key.
func (p StaticKeyProvider) Key(_ Scope) ([]byte, error) {
	if len(p.KeyBytes) == 0 {
		return nil, ErrMissingStaticKey
	}
	return append([]byte(nil), p.KeyBytes...), nil
}
